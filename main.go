package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"arenashooter/config"
	"arenashooter/server"
)

// 入口：启动 HTTP + WebSocket 服务与 30Hz Tick 循环
func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "config.yaml", "path to YAML config file (optional)")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	// 使用 zap 日志库写入日志文件（带滚动）
	if err := server.InitLogger(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer server.SyncLogger()
	server.Log.Infow("config loaded", "addr", cfg.Server.Addr, "static", cfg.Server.StaticDir, "log_level", cfg.Log.Level)

	metrics := &server.Metrics{}
	hub := server.NewHub(metrics)
	rooms := server.NewRoomManager(hub, server.WithMetrics(metrics))
	gw := server.NewGateway(rooms, hub, metrics)
	loop := server.NewLoop(rooms, metrics)
	api := server.NewAPI(rooms, hub, metrics)

	handler := api.Routes(
		server.NewWSHandler(gw, cfg.Gateway),
		http.FileServer(http.Dir(cfg.Server.StaticDir)),
	)
	srv := &http.Server{Addr: cfg.Server.Addr, Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(ctx)
	}()

	go func() {
		server.Log.Infof("Server running on %s", cfg.Server.Addr)
		for _, u := range listenURLs(cfg.Server.Addr, localIPv4s()) {
			server.Log.Infof("  -> %s", u)
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			server.Log.Errorf("listen: %v", err)
			stop()
		}
	}()

	// 优雅退出（Ctrl+C）
	<-ctx.Done()
	server.Log.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		server.Log.Warnf("shutdown: %v", err)
	}
	<-loopDone
}

// localIPv4s 本机非回环 IPv4 地址，便于局域网内直接访问
func localIPv4s() []net.IP {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		server.Log.Warnf("list interfaces: %v", err)
		return nil
	}
	var ips []net.IP
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if ip4 := ipnet.IP.To4(); ip4 != nil {
			ips = append(ips, ip4)
		}
	}
	return ips
}

// listenURLs 监听地址绑定到具体主机时只返回该主机，否则列出每个局域网地址
func listenURLs(addr string, ips []net.IP) []string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil
	}
	if host != "" && host != "0.0.0.0" && host != "::" {
		return []string{"http://" + net.JoinHostPort(host, port)}
	}
	urls := make([]string, 0, len(ips))
	for _, ip := range ips {
		urls = append(urls, "http://"+net.JoinHostPort(ip.String(), port))
	}
	return urls
}
