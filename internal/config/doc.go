// Package config manages the dlipower YAML configuration file.
//
// The file describes named power switches (address, credentials, timings and
// desired outlet names), switched devices that live on one outlet of a
// switch, MQTT bridge settings and the connection defaults used when no
// switch is named.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/dlipower/config.yaml or $HOME/.config/dlipower/config.yaml
//   - macOS: $HOME/.config/dlipower/config.yaml
//   - Windows: %LOCALAPPDATA%\dlipower\config.yaml
//
// # Example
//
//	version: 1
//	defaults:
//	  username: admin
//	  timeout: 2s
//	switches:
//	  rack:
//	    hostname: 10.0.0.20
//	    password: secret
//	    outlets:
//	      1: Router
//	      2: NAS
//	devices:
//	  nas:
//	    switch: rack
//	    outlet: 2
//	    delay_after_on: 30s
//
// # Security
//
// Passwords are stored in plain text, so Save always leaves the file with
// mode 0600 and its directory with mode 0700.
//
// There is no package-level configuration: Load returns a *File that the
// caller owns and passes to whatever needs it.
package config
