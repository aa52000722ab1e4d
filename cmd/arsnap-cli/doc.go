// Package main provides the entry point for arsnap-cli.
//
// arsnap-cli drives a running arsnap-recorder over its control socket and
// inspects recorded session folders offline:
//
//	arsnap-cli session start "living room"
//	arsnap-cli session status -o wide
//	arsnap-cli session stop
//	arsnap-cli session inspect --verify ~/Documents/arsnap/living\ room
//	arsnap-cli --http 127.0.0.1:9464 system health
package main
