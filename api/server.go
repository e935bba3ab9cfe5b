// Package api serves benchmark results over HTTP.
package api

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bwilder0/folktexts/internal/config"
	"github.com/bwilder0/folktexts/internal/store"
)

type Server struct {
	router *gin.Engine
	store  *store.Store
	config *config.Config
}

func NewServer(cfg *config.Config, st *store.Store) (*Server, error) {
	if st == nil {
		return nil, errors.New("api: nil store")
	}

	r := gin.New()
	s := &Server{
		router: r,
		store:  st,
		config: cfg,
	}
	s.registerMiddleware()
	if err := s.registerRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) Run(addr string) error {
	if s == nil || s.router == nil {
		return errors.New("api: nil server")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		addr = ":8080"
	}
	return s.router.Run(addr)
}

// Handler exposes the router for tests.
func (s *Server) Handler() *gin.Engine {
	return s.router
}
