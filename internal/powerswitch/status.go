package powerswitch

import (
	"context"
	"fmt"
	"strconv"
)

// OutletStatus is one outlet entry of a Report
type OutletStatus struct {
	Name  string `json:"name"`
	State State  `json:"state"`
}

// Report is the status of a switch as consumed by monitoring and the MQTT
// bridge. Outlets is keyed by the outlet number as a string.
type Report struct {
	Address           string                  `json:"address"`
	Name              string                  `json:"name"`
	Reachable         bool                    `json:"reachable"`
	Operational       bool                    `json:"operational"`
	WhyNotOperational []string                `json:"why_not_operational,omitempty"`
	Admin             bool                    `json:"admin"`
	Outlets           map[string]OutletStatus `json:"outlets"`
}

// StatusReport reads the switch and summarises it. When the status page
// cannot be read the outlets fall back to the configured names with state
// Unknown.
func (c *Client) StatusReport(ctx context.Context) Report {
	r := Report{
		Address:     c.endpoint.Hostname,
		Name:        c.name,
		Reachable:   c.Reachable(),
		Operational: c.Reachable(),
		Outlets:     make(map[string]OutletStatus),
	}

	if !r.Reachable {
		r.WhyNotOperational = append(r.WhyNotOperational, fmt.Sprintf("power-switch '%s' not detected", c.name))
		r.fallbackOutlets(c.desired)
		return r
	}

	snap, err := c.Snapshot(ctx)
	if err != nil {
		r.Operational = false
		r.WhyNotOperational = append(r.WhyNotOperational,
			fmt.Sprintf("power-switch '%s' status unavailable: %s", c.name, GetShortErrorMessage(err)))
		r.fallbackOutlets(c.desired)
		return r
	}

	r.Admin = snap.Admin
	for _, o := range snap.Outlets {
		r.Outlets[strconv.Itoa(o.Index)] = OutletStatus{Name: o.Name, State: o.State}
	}
	return r
}

func (r *Report) fallbackOutlets(names map[int]string) {
	for index, name := range names {
		r.Outlets[strconv.Itoa(index)] = OutletStatus{Name: name, State: StateUnknown}
	}
}
