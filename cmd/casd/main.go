// Command casd serves a content store over gRPC for request services
// configured with the "grpc" store kind.
package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/vitwit/requestnet/logger"
	"github.com/vitwit/requestnet/storage"
	"github.com/vitwit/requestnet/storage/grpccas"
	"github.com/vitwit/requestnet/storage/localfs"
)

func main() {
	listen := flag.String("listen", "127.0.0.1:7401", "gRPC listen address")
	root := flag.String("root", "", "directory for stored documents; empty keeps them in memory")
	level := flag.String("log-level", "info", "debug, info, warn or error")
	maxMsg := flag.Int("max-msg-bytes", 4<<20, "maximum gRPC message size")
	flag.Parse()

	l := logger.NewZapLogger(*level)

	var cas storage.CAS = storage.NewMemoryCAS()
	if *root != "" {
		fs, err := localfs.New(*root)
		if err != nil {
			log.Fatalf("open store: %v", err)
		}
		cas = fs
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		log.Fatalf("listen %s: %v", *listen, err)
	}

	srv := grpc.NewServer(grpc.MaxRecvMsgSize(*maxMsg), grpc.MaxSendMsgSize(*maxMsg))
	grpccas.RegisterCASServer(srv, &grpccas.Server{CAS: cas, Logger: l})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		l.Info("shutting down", nil)
		srv.GracefulStop()
	}()

	l.Info("content store listening", map[string]any{"addr": lis.Addr().String(), "root": *root})
	if err := srv.Serve(lis); err != nil {
		log.Fatalf("serve: %v", err)
	}
}
