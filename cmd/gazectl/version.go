package main

// Version is set at build time with
// -ldflags "-X main.Version=1.2.3".
var Version = "dev"
