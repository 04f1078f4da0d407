// Package loader 负责网格候选文件的加载与热更新监听，
// 让长跑的寻优流程不用重启就能换阈值候选集。
package loader

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"fxlab/internal/logger"
	"fxlab/internal/walkforward"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// GridDefinition 是一组命名的阈值候选集。
type GridDefinition struct {
	Name       string    `mapstructure:"-"`
	Candidates []float64 `mapstructure:"candidates"`
	Default    bool      `mapstructure:"default"`
}

// FileConfig 是完整的网格配置文件结构。
type FileConfig struct {
	Grids map[string]GridDefinition `mapstructure:"grids"`
}

// GridSnapshot 对外暴露的只读快照。
type GridSnapshot struct {
	Version  int64
	LoadedAt time.Time
	Grids    map[string]GridDefinition
}

// Candidates 返回指定网格的候选集；name 为空取标记 default 的网格，
// 都没有则回落到内置默认候选集。
func (s GridSnapshot) Candidates(name string) []float64 {
	name = strings.ToLower(strings.TrimSpace(name))
	if name != "" {
		if def, ok := s.Grids[name]; ok && len(def.Candidates) >= 2 {
			return append([]float64(nil), def.Candidates...)
		}
	}
	for _, def := range sortedGrids(s.Grids) {
		if def.Default && len(def.Candidates) >= 2 {
			return append([]float64(nil), def.Candidates...)
		}
	}
	return append([]float64(nil), walkforward.DefaultCandidates...)
}

func sortedGrids(grids map[string]GridDefinition) []GridDefinition {
	names := make([]string, 0, len(grids))
	for name := range grids {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]GridDefinition, 0, len(names))
	for _, name := range names {
		out = append(out, grids[name])
	}
	return out
}

// ChangeListener 在配置变更时被调用。
type ChangeListener func(GridSnapshot)

// GridLoader 从 YAML 文件加载网格候选，并监听热更新。
type GridLoader struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  GridSnapshot
	listeners []ChangeListener
}

// NewGridLoader 读取配置文件并开始监听 FS 事件。
func NewGridLoader(path string) (*GridLoader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("grid loader requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read grid config failed: %w", err)
	}
	loader := &GridLoader{path: path, v: v}
	if err := loader.reload(); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := loader.reload(); err != nil {
			logger.Errorf("grid reload failed (%s): %v", evt.Name, err)
			return
		}
		loader.notify()
	})
	v.WatchConfig()
	return loader, nil
}

// Snapshot 返回当前配置快照（深拷贝）。
func (l *GridLoader) Snapshot() GridSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneSnapshot(l.snapshot)
}

// Subscribe 注册监听器，并立即收到一次完整快照。
func (l *GridLoader) Subscribe(fn ChangeListener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	snap := cloneSnapshot(l.snapshot)
	l.mu.Unlock()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorf("grid listener panic: %v", r)
			}
		}()
		fn(snap)
	}()
}

func (l *GridLoader) notify() {
	l.mu.RLock()
	snap := cloneSnapshot(l.snapshot)
	listeners := append([]ChangeListener(nil), l.listeners...)
	l.mu.RUnlock()
	for _, fn := range listeners {
		if fn == nil {
			continue
		}
		go func(cb ChangeListener) {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("grid listener panic: %v", r)
				}
			}()
			cb(snap)
		}(fn)
	}
}

func (l *GridLoader) reload() error {
	var fileCfg FileConfig
	if err := l.v.Unmarshal(&fileCfg); err != nil {
		return fmt.Errorf("parse grid config failed: %w", err)
	}
	normalized := make(map[string]GridDefinition)
	for name, def := range fileCfg.Grids {
		norm, err := normalizeGridDefinition(name, def)
		if err != nil {
			return err
		}
		normalized[norm.Name] = norm
	}
	l.mu.Lock()
	l.snapshot = GridSnapshot{
		Version:  l.snapshot.Version + 1,
		LoadedAt: time.Now(),
		Grids:    normalized,
	}
	l.mu.Unlock()
	logger.Infof("网格候选已加载: %d 组 (%s)", len(normalized), filepath.Base(l.path))
	return nil
}

func normalizeGridDefinition(name string, def GridDefinition) (GridDefinition, error) {
	def.Name = strings.ToLower(strings.TrimSpace(name))
	if def.Name == "" {
		return def, fmt.Errorf("网格名称不能为空")
	}
	if len(def.Candidates) < 2 {
		return def, fmt.Errorf("网格 %s 候选值不足（至少 2 个）", def.Name)
	}
	for _, c := range def.Candidates {
		if c < 0 || c > 100 {
			return def, fmt.Errorf("网格 %s 含越界候选值 %.2f（应在 [0,100]）", def.Name, c)
		}
	}
	sorted := append([]float64(nil), def.Candidates...)
	sort.Float64s(sorted)
	def.Candidates = sorted
	return def, nil
}

func cloneSnapshot(src GridSnapshot) GridSnapshot {
	dst := GridSnapshot{
		Version:  src.Version,
		LoadedAt: src.LoadedAt,
		Grids:    make(map[string]GridDefinition, len(src.Grids)),
	}
	for name, def := range src.Grids {
		dst.Grids[name] = def
	}
	return dst
}
