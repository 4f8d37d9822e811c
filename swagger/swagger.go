// Package swagger serves the API description and a Swagger UI page for it.
package swagger

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
)

//go:embed swagger-ui/*
var content embed.FS

const specFile = "openapi.yaml"

// Spec returns the embedded OpenAPI document.
func Spec() ([]byte, error) {
	return content.ReadFile("swagger-ui/" + specFile)
}

// Handler serves the UI at / and the document at /openapi.yaml. Mount it under a stripped prefix.
func Handler() (http.Handler, error) {
	ui, err := fs.Sub(content, "swagger-ui")
	if err != nil {
		return nil, fmt.Errorf("swagger: %w", err)
	}

	spec, err := Spec()
	if err != nil {
		return nil, fmt.Errorf("swagger: %w", err)
	}

	files := http.FileServer(http.FS(ui))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /"+specFile, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(spec)
	})
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		files.ServeHTTP(w, r)
	})
	mux.HandleFunc("GET /index.html", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "./", http.StatusMovedPermanently)
	})

	return mux, nil
}
