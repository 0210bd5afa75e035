package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/srcres/modelasset-go/pkg/modelasset"
	"github.com/srcres/modelasset-go/pkg/modelasset/gltf"
	"github.com/srcres/modelasset-go/pkg/modelasset/logging"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	backendName := flag.String("backend", "", "Backend override (native, wasm, inprocess)")
	resources := flag.String("resources", "", "Resource directory override")
	logLevel := flag.String("log-level", "", "Log level override (debug, info, warn, error)")
	printConfig := flag.Bool("print-config", false, "Print the effective configuration and exit")
	flag.Parse()

	fileCfg, err := modelasset.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load configuration: %v\n", err)
		os.Exit(1)
	}
	if *backendName != "" {
		fileCfg.Backend = *backendName
	}
	if *resources != "" {
		fileCfg.ResourceDir = *resources
	}
	if *logLevel != "" {
		fileCfg.LogLevel = *logLevel
	}

	if *printConfig {
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(fileCfg); err != nil {
			fmt.Fprintf(os.Stderr, "encode configuration: %v\n", err)
			os.Exit(1)
		}
		return
	}

	logger, err := newLogger(fileCfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting modelasset-go", versionFields()...)

	if err := run(context.Background(), fileCfg, logger, flag.Args()); err != nil {
		logger.Fatal("modelasset-go failed", zap.Error(err))
	}
}

func versionFields() []zap.Field {
	return []zap.Field{
		zap.String("version", modelasset.WrapperVersion()),
		zap.String("abi", modelasset.ABIVersion),
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zap.ParseAtomicLevel(level)
		if err != nil {
			return nil, err
		}
		cfg.Level = lvl
	}
	return cfg.Build()
}

func run(ctx context.Context, fileCfg *modelasset.FileConfig, logger *zap.Logger, args []string) error {
	cfg, err := fileCfg.Config(logging.NewZap(logger))
	if err != nil {
		return err
	}

	lib, err := modelasset.Open(ctx, cfg)
	if err != nil {
		if errors.Is(err, modelasset.ErrResourceNotFound) || errors.Is(err, modelasset.ErrUnsupportedPlatform) {
			fmt.Printf("library unavailable: %v\n", err)
			return nil
		}
		return err
	}
	defer func() {
		if cerr := lib.Close(); cerr != nil {
			logger.Warn("close error", zap.Error(cerr))
		}
	}()

	if len(args) == 0 {
		fmt.Println("library opened successfully")
		return nil
	}
	for _, path := range args {
		if err := describe(lib, path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func describe(lib *modelasset.Library, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	doc, err := gltf.Open(lib, data, gltf.NewFSResolver(os.DirFS(dir), "."))
	if err != nil {
		return err
	}
	defer doc.Close()

	meshes, err := doc.MeshCount()
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d meshes\n", path, meshes)

	for _, uri := range doc.ImageURIs() {
		img, err := doc.DecodeImage(uri)
		if err != nil {
			fmt.Printf("  %s: %v\n", logging.ShortURI(uri), err)
			continue
		}
		w, werr := img.Width()
		h, herr := img.Height()
		img.Close()
		if err := errors.Join(werr, herr); err != nil {
			fmt.Printf("  %s: %v\n", logging.ShortURI(uri), err)
			continue
		}
		fmt.Printf("  %s: %dx%d\n", logging.ShortURI(uri), w, h)
	}
	return nil
}
