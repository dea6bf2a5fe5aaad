package commands

// OPEN is the command that opens a URL in the default browser.
const OPEN = "xdg-open"
