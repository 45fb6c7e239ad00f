package bind233

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-logr/logr"

	"github.com/neko233-com/bind233-go/pkg/bind233/excel"
	"github.com/neko233-com/bind233-go/pkg/bind233/hcl"
	jsoncodec "github.com/neko233-com/bind233-go/pkg/bind233/json"
	"github.com/neko233-com/bind233-go/pkg/bind233/node"
	tomlcodec "github.com/neko233-com/bind233-go/pkg/bind233/toml"
	"github.com/neko233-com/bind233-go/pkg/bind233/tsv"
	xmlcodec "github.com/neko233-com/bind233-go/pkg/bind233/xml"
	yamlcodec "github.com/neko233-com/bind233-go/pkg/bind233/yaml"
)

// State 配置源状态
type State int32

const (
	// StateUnloaded 尚未成功加载
	StateUnloaded State = iota
	// StateLoaded 已加载，未监听文件
	StateLoaded
	// StateWatching 已加载并在后台监听文件变化
	StateWatching
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateWatching:
		return "watching"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// DefaultPollInterval 后台轮询文件变化的默认间隔
const DefaultPollInterval = 10 * time.Second

// Source 配置源
// 持有根文档和已注册的根对象，负责加载、重载、写回和文件监听
// 加载、注册、重载、保存和写入互斥执行
type Source struct {
	mu          sync.Mutex
	pendingSave atomic.Bool // 文档已修改，等待持锁方保存

	codecs       map[string]node.Codec
	reloadable   atomic.Bool
	pollInterval time.Duration
	log          logr.Logger
	binder       *binder

	writable atomic.Bool
	state    atomic.Int32
	doc      atomic.Pointer[node.Document]
	file     atomic.Value // string

	inline      string     // 内联文本，文件来源时为空
	inlineCodec node.Codec // 内联文本的编解码器
	roots       []Configurable

	watch        *watcher
	failedMarker node.Marker
	lastReload   atomic.Int64 // UnixNano

	listenersMu sync.Mutex
	listeners   []ReloadListener
}

// NewSource 创建配置源，注册全部内置格式
// 返回配置源实例，可以链式调用配置方法
func NewSource() *Source {
	s := &Source{
		codecs:       make(map[string]node.Codec),
		pollInterval: DefaultPollInterval,
		log:          getLogger(),
	}
	s.file.Store("")
	s.binder = newBinder()
	s.binder.log = s.log
	s.binder.guard = s.guard
	s.binder.source = s

	jsonCodec := jsoncodec.NewCodec()
	yamlCodec := yamlcodec.NewCodec()
	s.AddCodec("xml", xmlcodec.NewCodec()).
		AddCodec("yaml", yamlCodec).
		AddCodec("yml", yamlCodec).
		AddCodec("json", jsonCodec).
		AddCodec("tsv", tsv.NewCodec()).
		AddCodec("xlsx", excel.NewCodec()).
		AddCodec("hcl", hcl.NewCodec()).
		AddCodec("toml", tomlcodec.NewCodec())
	return s
}

// AddCodec 注册编解码器
// 参数:
//
//	ext: 文件扩展名或格式名（如 "xml"、"yaml"），不区分大小写
//	codec: 编解码器
//
// 返回值:
//
//	*Source: 支持链式调用
func (s *Source) AddCodec(ext string, codec node.Codec) *Source {
	s.codecs[normalizeExt(ext)] = codec
	return s
}

// Reloadable 设置 Load 之后是否自动监听文件变化
func (s *Source) Reloadable(reloadable bool) *Source {
	s.reloadable.Store(reloadable)
	return s
}

// Writable 设置文档被修改后是否写回文件
func (s *Source) Writable(writable bool) *Source {
	s.writable.Store(writable)
	return s
}

// PollInterval 设置后台轮询间隔，非正数时使用 DefaultPollInterval
func (s *Source) PollInterval(d time.Duration) *Source {
	if d <= 0 {
		d = DefaultPollInterval
	}
	s.pollInterval = d
	return s
}

// WithLogger 设置当前配置源使用的日志，默认使用全局日志
func (s *Source) WithLogger(logger logr.Logger) *Source {
	s.log = logger
	s.binder.log = logger
	return s
}

// WithClock 设置日期字段拼接时刻所用的时钟
func (s *Source) WithClock(now func() time.Time) *Source {
	s.binder.coercer.Now = now
	return s
}

// DateOnly 日期字段保持零点，不拼接当前时刻
func (s *Source) DateOnly() *Source {
	s.binder.coercer.DateOnly = true
	return s
}

// State 返回当前状态
func (s *Source) State() State {
	return State(s.state.Load())
}

// File 返回来源文件路径，内联配置为空
func (s *Source) File() string {
	return s.file.Load().(string)
}

// Root 返回当前文档根节点，未加载时返回 nil
func (s *Source) Root() *node.Node {
	if doc := s.doc.Load(); doc != nil {
		return doc.Root()
	}
	return nil
}

// Document 返回当前文档，未加载时返回 nil
func (s *Source) Document() *node.Document {
	return s.doc.Load()
}

// Load 加载配置并绑定全部已注册对象
// 参数 src 以 '<' 开头且形如 XML 时视为内联文档，否则视为文件路径，扩展名决定格式
// 配置了 Reloadable 且来源为文件时会自动开始监听
func (s *Source) Load(src string) error {
	return s.LoadWith(src, s.reloadable.Load(), s.writable.Load())
}

// LoadWith 以指定的重载与写回选项加载配置
// 正在监听时换成了其他来源，监听会切换到新文件；新来源为内联配置时停止监听
func (s *Source) LoadWith(src string, reloadable, writable bool) error {
	s.reloadable.Store(reloadable)
	s.writable.Store(writable)

	s.mu.Lock()
	prevFile := s.File()
	err := s.load(src)
	moved := err == nil && s.watch != nil && s.File() != prevFile
	if uerr := s.unlock(); err == nil {
		err = uerr
	}
	if err != nil {
		return err
	}
	s.notifyLoaded()

	if moved {
		if err := s.StopWatching(); err != nil {
			return err
		}
		if s.File() == "" {
			return nil
		}
		return s.StartWatching(context.Background())
	}
	if reloadable && s.File() != "" {
		return s.StartWatching(context.Background())
	}
	return nil
}

// LoadText 以指定格式加载内存中的配置文本
func (s *Source) LoadText(format, text string) error {
	codec, ok := s.codecs[normalizeExt(format)]
	if !ok {
		return fmt.Errorf("%w: 不支持的配置格式 %q", ErrConfigLoad, format)
	}

	s.mu.Lock()
	err := s.loadInline(text, codec)
	if uerr := s.unlock(); err == nil {
		err = uerr
	}
	if err == nil {
		s.notifyLoaded()
	}
	return err
}

// LoadReader 以指定格式从输入流加载配置，内容会被保留用于 Reload
func (s *Source) LoadReader(format string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfigLoad, err)
	}
	return s.LoadText(format, string(data))
}

func (s *Source) load(src string) error {
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return fmt.Errorf("%w: 配置源为空", ErrConfigLoad)
	}
	if xmlcodec.LooksLikeXML(trimmed) {
		return s.loadInline(trimmed, s.codecs["xml"])
	}

	codec, err := s.codecFor(trimmed)
	if err != nil {
		return err
	}
	doc, err := node.ReadFile(trimmed, codec)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfigLoad, err)
	}
	if err := s.install(doc); err != nil {
		return err
	}
	s.file.Store(trimmed)
	s.inline, s.inlineCodec = "", nil
	s.log.Info("加载配置文件成功", "file", trimmed, "format", codec.Name(), "roots", len(s.roots))
	return nil
}

func (s *Source) loadInline(text string, codec node.Codec) error {
	if codec == nil {
		return fmt.Errorf("%w: 未注册 xml 编解码器", ErrConfigLoad)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: 配置源为空", ErrConfigLoad)
	}
	doc, err := node.ReadString(text, codec)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfigLoad, err)
	}
	if err := s.install(doc); err != nil {
		return err
	}
	s.file.Store("")
	s.inline, s.inlineCodec = text, codec
	s.log.Info("加载内联配置成功", "format", codec.Name(), "roots", len(s.roots))
	return nil
}

// install 绑定全部根对象，全部成功后新文档才生效
func (s *Source) install(doc *node.Document) error {
	prev := s.doc.Load()
	s.doc.Store(doc)
	doc.OnChange(s.onDocumentChanged)

	sess := s.binder.session()
	defer sess.release()
	for _, c := range s.roots {
		if err := sess.bindChild(doc.Root(), c); err != nil {
			s.doc.Store(prev)
			s.pendingSave.Store(false)
			return err
		}
	}

	s.state.CompareAndSwap(int32(StateUnloaded), int32(StateLoaded))
	s.lastReload.Store(time.Now().UnixNano())
	return nil
}

// Reload 重新读取同一来源并原地重新绑定全部根对象
func (s *Source) Reload() error {
	s.mu.Lock()
	err := s.reload()
	if uerr := s.unlock(); err == nil {
		err = uerr
	}
	if err == nil {
		s.notifyLoaded()
	}
	return err
}

func (s *Source) reload() error {
	if file := s.File(); file != "" {
		codec, err := s.codecFor(file)
		if err != nil {
			return err
		}
		doc, err := node.ReadFile(file, codec)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConfigLoad, err)
		}
		return s.install(doc)
	}
	if s.inlineCodec != nil {
		return s.loadInline(s.inline, s.inlineCodec)
	}
	return fmt.Errorf("%w: 配置源尚未加载", ErrConfigLoad)
}

// Register 注册根对象
// 已加载时立即绑定该对象（后注入），绑定失败时不保留注册
// 加载、重载期间从其他 goroutine 调用会等待其结束
// AfterBind 中请改用 Base.RegisterRoot
// 参数:
//
//	c: 根对象，路径相对文档根节点解析
//
// 返回值:
//
//	error: ErrMissingConfigPath 或绑定错误
func (s *Source) Register(c Configurable) error {
	if PathOf(c) == "" {
		return newBindError(ErrMissingConfigPath, typeName(c), "", "", nil)
	}

	return s.binder.inSession(func(sess *binder) error {
		return s.register(sess, c)
	})
}

// register 调用方持锁，sess 为当前持锁会话
func (s *Source) register(sess *binder, c Configurable) error {
	for _, existing := range s.roots {
		if existing == c {
			return nil
		}
	}
	s.roots = append(s.roots, c)

	doc := s.doc.Load()
	if doc == nil {
		return nil
	}

	if err := sess.bindChild(doc.Root(), c); err != nil {
		s.roots = s.roots[:len(s.roots)-1]
		return err
	}
	s.log.V(1).Info("后注入配置对象已绑定", "type", typeName(c), "path", PathOf(c))
	return nil
}

// WriteProperty 在文档根节点下写入标量值，不修改已绑定的对象
// 配置源可写时文档会在返回前保存；AfterBind 中请改用 Base.WriteProperty
func (s *Source) WriteProperty(path string, value any) error {
	p, err := node.ParsePath(path)
	if err != nil {
		return err
	}
	text, err := FormatValue(value)
	if err != nil {
		return err
	}
	return s.guard(func() error {
		root := s.Root()
		if root == nil {
			return fmt.Errorf("%w: 配置源尚未加载", ErrConfigLoad)
		}
		return root.SetScalar(p, text)
	})
}

// Save 将当前文档保存到来源文件
// 保存后刷新文件标记，监听器不会把这次写入当作外部修改
func (s *Source) Save() error {
	s.mu.Lock()
	s.pendingSave.Store(false)
	err := s.save(true)
	if uerr := s.unlock(); err == nil {
		err = uerr
	}
	return err
}

// SetFile 设置保存目标文件，扩展名决定写出格式，之后 Reload 从该文件读取
func (s *Source) SetFile(path string) error {
	codec, err := s.codecFor(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.file.Store(path)
	if doc := s.doc.Load(); doc != nil {
		doc.SetCodec(codec)
	}
	watching := s.watch != nil
	if uerr := s.unlock(); uerr != nil {
		return uerr
	}

	if watching {
		if err := s.StopWatching(); err != nil {
			return err
		}
		return s.StartWatching(context.Background())
	}
	return nil
}

func (s *Source) save(explicit bool) error {
	doc := s.doc.Load()
	if doc == nil {
		return fmt.Errorf("%w: 配置源尚未加载", ErrConfigLoad)
	}
	file := s.File()
	if file == "" {
		if explicit {
			return fmt.Errorf("内联配置没有目标文件，请先调用 SetFile")
		}
		s.log.V(1).Info("内联配置没有目标文件，跳过写回")
		return nil
	}
	if err := doc.SaveFile(file); err != nil {
		return err
	}
	s.log.Info("保存配置文件成功", "file", file)
	return nil
}

// guard 在锁内执行 fn，并在释放锁前写回
func (s *Source) guard(fn func() error) error {
	s.mu.Lock()
	err := fn()
	if uerr := s.unlock(); err == nil {
		err = uerr
	}
	return err
}

// onDocumentChanged 文档修改回调，可写时登记一次保存
func (s *Source) onDocumentChanged(*node.Node) {
	if !s.writable.Load() {
		return
	}
	s.pendingSave.Store(true)
	if s.mu.TryLock() {
		if err := s.unlock(); err != nil {
			s.log.Error(err, "写回配置文件失败", "file", s.File())
		}
	}
}

// unlock 保存待写回的文档后释放锁
// 释放后若又有新的修改且锁空闲，则重新加锁保存
func (s *Source) unlock() error {
	var err error
	for {
		if s.pendingSave.Swap(false) {
			if serr := s.save(false); serr != nil {
				err = serr
			}
		}
		s.mu.Unlock()
		if !s.pendingSave.Load() || !s.mu.TryLock() {
			return err
		}
	}
}

func (s *Source) codecFor(path string) (node.Codec, error) {
	ext := normalizeExt(filepath.Ext(path))
	codec, ok := s.codecs[ext]
	if !ok {
		return nil, fmt.Errorf("%w: 不支持的配置文件格式 %q (%s)", ErrConfigLoad, ext, path)
	}
	return codec, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
