// Package mqtt bridges power switches to an MQTT broker.
//
// Topics, with the default prefix "dlipower":
//
//	dlipower/bridge/state                    online | offline (retained, will)
//	dlipower/<switch>/status                 JSON status report (retained)
//	dlipower/<switch>/outlet/<outlet>/set    ON | OFF | CYCLE
//	dlipower/<switch>/outlet/<outlet>/result JSON command result
//
// <outlet> is an outlet number or name. A switch that was not detected is
// logged into again before each status publish.
package mqtt
