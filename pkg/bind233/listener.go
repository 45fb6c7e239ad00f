package bind233

// ReloadListener 配置源加载监听器
// 回调在配置源释放锁之后执行，可以在回调中调用配置源的任何方法
type ReloadListener interface {
	// OnConfigLoadComplete 加载或重载成功，全部根对象已绑定
	// 参数:
	//
	//	file: 来源文件，内联配置为空
	OnConfigLoadComplete(file string)

	// OnConfigReloadFailed 后台监听触发的重载失败，上一次的配置保持生效
	OnConfigReloadFailed(file string, err error)
}

// AddListener 注册加载监听器
func (s *Source) AddListener(l ReloadListener) *Source {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.listeners = append(s.listeners, l)
	return s
}

func (s *Source) snapshotListeners() []ReloadListener {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	out := make([]ReloadListener, len(s.listeners))
	copy(out, s.listeners)
	return out
}

func (s *Source) notifyLoaded() {
	file := s.File()
	for _, l := range s.snapshotListeners() {
		l.OnConfigLoadComplete(file)
	}
}

func (s *Source) notifyReloadFailed(err error) {
	file := s.File()
	for _, l := range s.snapshotListeners() {
		l.OnConfigReloadFailed(file, err)
	}
}
