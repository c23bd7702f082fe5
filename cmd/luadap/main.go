// Package main is the entry point for the luadap debug adapter.
package main

import (
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"

	"github.com/gorilla/websocket"

	"github.com/dshills/luadap/internal/dap"
	"github.com/dshills/luadap/internal/debugger"
	"github.com/dshills/luadap/internal/interp/luavm"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	var listenAddr string
	var wsAddr string
	var showVersion bool

	flag.StringVar(&listenAddr, "listen", "", "Serve DAP over TCP on this address instead of stdio")
	flag.StringVar(&wsAddr, "ws", "", "Serve DAP over WebSocket on this address instead of stdio")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("luadap %s (%s)\n", version, commit)
		return 0
	}

	switch {
	case listenAddr != "":
		return runTCP(listenAddr)
	case wsAddr != "":
		return runWebSocket(wsAddr)
	default:
		return serve(dap.NewStdioTransport())
	}
}

// serve runs one debug session over the given transport until the
// client disconnects.
func serve(transport dap.Transport) int {
	srv := dap.NewServer(transport)

	runtime := luavm.New(luavm.WithPrint(func(text string) {
		srv.Client().Output(dap.OutputEventBody{Category: "stdout", Output: text + "\n"})
	}))

	backend := debugger.NewBackend(runtime, srv.Client())
	if err := srv.Serve(backend); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// runTCP accepts connections and serves each one as its own session,
// one at a time.
func runTCP(addr string) int {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: listen %s: %v\n", addr, err)
		return 1
	}
	defer ln.Close()
	fmt.Fprintf(os.Stderr, "luadap listening on %s\n", addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: accept: %v\n", err)
			return 1
		}
		serve(dap.NewConnTransport(conn))
	}
}

// runWebSocket serves each connection to /dap as its own session.
func runWebSocket(addr string) int {
	upgrader := websocket.Upgrader{
		// The adapter runs locally; editors connect from file:// or
		// app origins, so origin checks stay permissive.
		CheckOrigin: func(*http.Request) bool { return true },
	}

	http.HandleFunc("/dap", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serve(dap.NewWebSocketTransport(conn))
	})

	fmt.Fprintf(os.Stderr, "luadap listening on ws://%s/dap\n", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
