package config

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// watcher 配置文件监控器
//
// 监听文件所在目录而非文件本身：多数编辑器和配置下发工具通过
// 写临时文件再重命名的方式替换配置，直接监听文件会在替换后失效。
type watcher struct {
	fw       *fsnotify.Watcher
	file     string
	onWrite  func()
	stopOnce sync.Once
	done     chan struct{}
}

func newWatcher(file string, onWrite func()) (*watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(file)
	if err != nil {
		fw.Close()
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &watcher{
		fw:      fw,
		file:    abs,
		onWrite: onWrite,
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *watcher) run() {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.file {
				continue
			}
			if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Rename) {
				w.onWrite()
			}
		case _, ok := <-w.fw.Errors:
			if !ok {
				return
			}
		case <-w.done:
			return
		}
	}
}

func (w *watcher) stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fw.Close()
	})
}
