// Package simulator runs the provisioning supervisor against simulated
// hardware: an in-memory radio, a button and LED on simulated pins, and an
// in-memory store that survives simulated restarts.
//
// Device is the simulated board and is usable headless. Model wraps a Device
// in a Bubble Tea program for the "wifiprov simulate" command.
//
// Keys:
//
//	b  hold or release the reset button
//	c  submit credentials through the captive portal
//	r  request an HTTP reset
//	l  drop the WiFi link
//	n  toggle the home network in or out of range
//	x  power-cycle the board
//	q  quit
package simulator
