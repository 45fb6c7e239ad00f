package bind233

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/neko233-com/bind233-go/pkg/bind233/node"
)

const (
	// ReloadBatchDelay 文件事件合并延迟，编辑器保存产生的多次事件只触发一次检查
	ReloadBatchDelay = 500 * time.Millisecond

	// ReloadCooldown 两次重载之间的最小间隔
	ReloadCooldown = 300 * time.Millisecond
)

// watcher 后台监听任务：文件事件泵和定时轮询
type watcher struct {
	cancel context.CancelFunc
	group  *errgroup.Group
}

// StartWatching 开始在后台监听来源文件
// 文件事件在 ReloadBatchDelay 后触发一次检查，轮询按 PollInterval 兜底
// 检测到内容变化时走与 Reload 相同的路径；重载失败只记录日志，保留旧文档
// 参数:
//
//	ctx: 取消后监听停止
//
// 返回值:
//
//	error: 未加载、内联配置或创建文件监听器失败
func (s *Source) StartWatching(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watch != nil {
		if s.State() == StateWatching {
			s.log.V(1).Info("文件监听已启动")
			return nil
		}
		// 上一次监听的上下文已取消，后台任务自行退出
		s.watch.cancel()
		s.watch = nil
	}
	file := s.File()
	if s.doc.Load() == nil || file == "" {
		return fmt.Errorf("%w: 只有已加载的文件配置可以监听", ErrConfigLoad)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("创建文件监听器失败: %w", err)
	}
	// 监听所在目录，替换式保存（先写临时文件再改名）也能收到事件
	if err := fw.Add(filepath.Dir(file)); err != nil {
		_ = fw.Close()
		return fmt.Errorf("添加监听目录失败: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(ctx)
	target := filepath.Clean(file)
	group.Go(func() error {
		return s.pumpEvents(gctx, fw, target)
	})
	group.Go(func() error {
		return s.pollChanges(gctx)
	})

	s.watch = &watcher{cancel: cancel, group: group}
	s.state.Store(int32(StateWatching))
	s.log.Info("文件监听已启动",
		"file", file,
		"pollInterval", s.pollInterval.String(),
		"batchDelayMs", ReloadBatchDelay.Milliseconds(),
		"cooldownMs", ReloadCooldown.Milliseconds())
	return nil
}

// StopWatching 停止后台监听并等待后台任务退出
func (s *Source) StopWatching() error {
	s.mu.Lock()
	w := s.watch
	s.watch = nil
	if w != nil {
		s.state.Store(int32(StateLoaded))
	}
	s.mu.Unlock()

	if w == nil {
		return nil
	}
	w.cancel()
	if err := w.group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	s.log.Info("文件监听已停止", "file", s.File())
	return nil
}

// Close 停止监听，释放后台资源
func (s *Source) Close() error {
	return s.StopWatching()
}

func (s *Source) pumpEvents(ctx context.Context, fw *fsnotify.Watcher, target string) error {
	defer func() {
		_ = fw.Close()
	}()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	arm := func(d time.Duration) {
		if timer == nil {
			timer = time.NewTimer(d)
		} else {
			timer.Stop()
			timer.Reset(d)
		}
		fire = timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				s.log.V(1).Info("检测到配置文件事件", "file", event.Name, "op", event.Op.String())
				arm(ReloadBatchDelay)
			}

		case <-fire:
			fire = nil
			since := time.Since(time.Unix(0, s.lastReload.Load()))
			if since < ReloadCooldown {
				arm(ReloadCooldown - since)
				continue
			}
			s.checkForChanges("event")

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			s.log.Error(err, "文件监听错误")
		}
	}
}

func (s *Source) pollChanges(ctx context.Context) error {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.state.CompareAndSwap(int32(StateWatching), int32(StateLoaded))
			return nil
		case <-ticker.C:
			s.checkForChanges("poll")
		}
	}
}

// checkForChanges 文件内容变化时重载，失败只记录日志
func (s *Source) checkForChanges(trigger string) {
	s.mu.Lock()
	reloaded, err := s.reloadIfChanged()
	if uerr := s.unlock(); err == nil {
		err = uerr
	}

	if err != nil {
		s.log.Error(err, "重载配置失败，保留上一次的配置", "file", s.File(), "trigger", trigger)
		s.notifyReloadFailed(err)
		return
	}
	if reloaded {
		s.log.Info("配置文件已重载", "file", s.File(), "trigger", trigger)
		s.notifyLoaded()
	}
}

func (s *Source) reloadIfChanged() (bool, error) {
	doc := s.doc.Load()
	file := s.File()
	if doc == nil || file == "" {
		return false, nil
	}

	changed, current, err := node.HasChangedSince(file, doc.Marker())
	if err != nil {
		return false, err
	}
	if !changed {
		// 只被 touch 过，记下新标记，下次轮询不必再计算指纹
		if !current.Equal(doc.Marker()) {
			doc.SetMarker(current)
		}
		return false, nil
	}
	if current.Equal(s.failedMarker) {
		return false, nil
	}

	if err := s.reload(); err != nil {
		// 同一份错误内容不再重复重载
		s.failedMarker = current
		return false, err
	}
	s.failedMarker = node.Marker{}
	return true, nil
}
