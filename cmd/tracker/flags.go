package main

import "time"

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
}

// ServeFlags Flag structs to decouple cobra from logic for testing.
type ServeFlags struct {
	ConfigPath    string
	Listen        string
	BasePath      string
	MetricsListen string
}

type ReplayFlags struct {
	ConfigPath string
	File       string
	Speed      float64
	// Remote bridge connection; empty means in-process
	APIUrl     string
	APITimeout time.Duration
}

type MetaFlags struct {
	ConfigPath string
}
