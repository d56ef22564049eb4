// Package bot wires the Discord session to the status boards, the user
// registry and the game server files: slash commands, component and
// reaction handlers, and the periodic board scheduler.
package bot
