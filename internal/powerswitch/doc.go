// Package powerswitch is a client for Digital Loggers web power switches.
//
// The switch has no API, only an HTML control panel behind a challenge
// login. This package logs in, scrapes the outlet table from the status page
// and drives outlets through the same GET requests the panel's links use.
//
// # Wire Protocol
//
//	GET  /                                   login page with the Challenge input
//	POST /login.tgi                          Username=<user>&Password=<md5 hex>
//	GET  /index.htm                          status page (outlet table)
//	GET  /outlet?<n>=ON|OFF                  switch outlet n
//	GET  /unitnames.cgi?outname<n>=<name>    rename outlet n
//
// # Usage Example
//
//	ep := powerswitch.DefaultEndpoint("192.168.0.100")
//	client := powerswitch.New(ctx, ep)
//	if !client.Reachable() {
//	    log.Fatal(client.LastError())
//	}
//
//	res, err := client.Off(ctx, powerswitch.Name("Router"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(res) // succeeded / already in state / failed
//
//	// Several outlets at once
//	out, err := client.Dispatch(ctx, powerswitch.CommandCycle,
//	    []powerswitch.OutletRef{powerswitch.Index(1), powerswitch.Index(2)})
//
// # Error Handling
//
// Construction never fails; an unreachable switch is reported by Reachable
// and LastError. Invalid outlet references are returned as resolution errors
// (errors.Is ErrUnknownOutlet or ErrOutletOutOfRange) before anything is
// switched. Network and parse failures degrade to Failed results and
// StateUnknown.
package powerswitch
