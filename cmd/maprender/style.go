package main

import "github.com/fatih/color"

// Terminal styles. fatih/color drops the escapes when stdout is not a
// terminal.
var (
	kindStyle = color.New(color.FgCyan)
	subtle    = color.New(color.FgHiBlack)
	hitStyle  = color.New(color.FgHiGreen, color.Bold)
)
