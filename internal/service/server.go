package service

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server 包装 http.Server，提供带日志的启动/优雅停止
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer 创建 HTTP Server；handler 为已注册全部路由的 mux
func NewServer(addr string, handler http.Handler, logger *zap.Logger) *Server {
	s := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return &Server{httpServer: s, logger: logger}
}

// Start 阻塞运行直到 Stop 或监听出错
func (s *Server) Start() error {
	s.logger.Info("Starting beidao-data HTTP server", zap.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Stop 优雅停止，等待在途请求完成或 ctx 超时
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping beidao-data HTTP server")
	return s.httpServer.Shutdown(ctx)
}
