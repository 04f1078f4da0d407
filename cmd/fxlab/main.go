package main

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"fxlab/internal/config"
	"fxlab/internal/logger"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("执行失败: %v", err)
	}
}

// loadConfig 读配置并初始化日志输出，所有子命令共用。
func loadConfig() *config.Config {
	path := cfgPath
	if path == "" {
		path = os.Getenv("FXLAB_CONFIG")
	}
	if path == "" {
		path = "configs/config.yaml"
	}
	var cfg *config.Config
	if _, statErr := os.Stat(path); statErr != nil {
		logger.Warnf("配置文件 %s 不可用，使用默认配置", path)
		cfg = config.Default()
	} else {
		var err error
		cfg, err = config.Load(path)
		if err != nil {
			log.Fatalf("读取配置失败: %v", err)
		}
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("初始化日志文件失败: %v", err)
	}
	_ = logFile
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("✓ 配置加载成功（环境=%s，数据源=%s）", cfg.App.Env, cfg.Feed.Source)
	return cfg
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
