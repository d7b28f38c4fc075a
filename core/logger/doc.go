// Package logger records the shell's session events as newline delimited
// JSON so play sessions can be reviewed later.
package logger
