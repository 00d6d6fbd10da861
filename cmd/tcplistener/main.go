package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/xaitan80/streamhttp/internal/body"
	"github.com/xaitan80/streamhttp/internal/buffer"
	"github.com/xaitan80/streamhttp/internal/request"
	"github.com/xaitan80/streamhttp/internal/transport"
)

// Debug tool: accepts raw TCP connections, frames requests with the real
// core, and prints what it saw.
func main() {
	port := flag.Int("port", 42069, "listen port")
	flag.Parse()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", *port))
	if err != nil {
		fmt.Println("listen error:", err)
		os.Exit(1)
	}
	defer ln.Close()

	for {
		conn, err := ln.Accept()
		if err != nil {
			fmt.Println("accept error:", err)
			continue
		}
		fmt.Println("accepted connection")

		// Handle each connection concurrently so we keep accepting others.
		go func(c net.Conn) {
			defer fmt.Println("closed connection")
			dump(c)
		}(conn)
	}
}

// dump frames requests off the connection until it closes, printing the
// request line, headers, and body of each.
func dump(conn net.Conn) {
	ctx := context.Background()
	src := transport.NewNetSource(conn)
	t := transport.NewAdapter(src)
	src.Start(t)
	defer t.Close()

	buf := buffer.New()
	for {
		req, err := frameNext(ctx, t, buf)
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		if req == nil {
			return
		}

		fmt.Println("Request line:")
		fmt.Println("- Method:", req.RequestLine.Method)
		fmt.Println("- Target:", req.RequestLine.RequestTarget)
		fmt.Println("- Version:", req.RequestLine.HttpVersion)
		fmt.Println("Headers:")
		for _, f := range req.Headers.Fields() {
			fmt.Printf("- %s: %s\n", f.Name, f.Value)
		}

		br, err := body.ForRequest(req, buf, t)
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		var payload []byte
		for {
			p, err := br.Next(ctx)
			if err != nil {
				fmt.Println("error:", err)
				return
			}
			if len(p) == 0 {
				break
			}
			payload = append(payload, p...)
		}
		if len(payload) > 0 {
			fmt.Println("Body:")
			fmt.Println(string(payload))
		}
	}
}

func frameNext(ctx context.Context, t *transport.Adapter, buf *buffer.Buffer) (*request.Request, error) {
	for {
		req, err := request.Frame(buf)
		if err != nil || req != nil {
			return req, err
		}
		p, err := t.Read(ctx)
		if err != nil {
			return nil, err
		}
		if len(p) == 0 {
			if buf.Len() > 0 {
				return nil, fmt.Errorf("unexpected end of stream reading header")
			}
			return nil, nil
		}
		buf.Append(p)
	}
}
