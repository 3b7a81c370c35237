// Package discovery finds web power switches on the local network.
//
// Switches do not announce a service type of their own, so the scanner
// browses every "_http._tcp" mDNS service and then probes each answer over
// HTTP. A candidate is kept when its root page carries the challenge login
// form the switch uses (a hidden "Challenge" input).
//
// # Usage Example
//
//	scanner := discovery.NewScanner()
//	scanner.Timeout = 5 * time.Second
//	switches, err := scanner.Scan(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, sw := range switches {
//	    fmt.Println(sw)
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Switches must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
//
// Switches that do not run mDNS at all will not be found; they still work with
// an explicit --hostname.
package discovery
