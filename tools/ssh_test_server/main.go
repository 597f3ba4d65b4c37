package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	srv "promptrun/tools/sshserv"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:20222", "listen address")
	page := flag.Int("page", 0, "lines per page; 0 disables paging")
	flag.Parse()

	s, err := srv.Start(srv.Config{
		Addr:     *addr,
		Banner:   "Welcome to the test device",
		PageSize: *page,
		Responses: map[string]string{
			"show version": "Device OS 1.2.3\nuptime is 4 days",
			"show clock":   "12:00:00 UTC",
		},
	})
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "failed to start test ssh server:", err)
		os.Exit(1)
	}
	_, _ = fmt.Fprintln(os.Stderr, "test ssh server listening on", s.Addr())
	defer s.Close()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
