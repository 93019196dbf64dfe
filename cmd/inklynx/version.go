package main

// Version is set during build using ldflags
var Version = "dev"
