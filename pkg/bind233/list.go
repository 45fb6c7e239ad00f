package bind233

import (
	"fmt"
	"iter"
	"reflect"

	"github.com/neko233-com/bind233-go/pkg/bind233/node"
)

// elementBinder 由 List 实现，绑定完字段后重建元素
type elementBinder interface {
	bindElements(b *binder, n *node.Node) error
}

var elementBinderType = reflect.TypeOf((*elementBinder)(nil)).Elem()

// List 同类配置对象的有序列表
// 每次绑定都会按元素路径匹配全部同名子节点，为每个子节点创建新元素，顺序与文档一致
//
//	type ListItemConfig struct {
//		bind233.Base `bind233:"ListItemConfig"`
//		ID string `bind233:"[@id]"`
//	}
//
//	type ListConfig struct {
//		bind233.List[ListItemConfig, *ListItemConfig] `bind233:"ListConfig"`
//		ListKey string `bind233:"[@listkey]" default:"null"`
//	}
type List[T any, PT interface {
	*T
	Configurable
}] struct {
	Base
	items []PT
}

func newElement[T any, PT interface {
	*T
	Configurable
}]() (PT, error) {
	v, err := instantiate(reflect.TypeOf(PT(nil)))
	if err != nil {
		return nil, err
	}
	return v.Interface().(PT), nil
}

// bindElements 重建元素，全部元素绑定成功后才替换旧内容
func (l *List[T, PT]) bindElements(b *binder, n *node.Node) error {
	proto, err := newElement[T, PT]()
	if err != nil {
		return newBindError(ErrSchemaInstantiation, typeName(PT(nil)), "", "", err)
	}
	path := PathOf(proto)
	if path == "" {
		return newBindError(ErrMissingConfigPath, typeName(proto), "", "", fmt.Errorf("列表元素缺少路径"))
	}
	p, err := node.ParsePath(path)
	if err != nil {
		return newBindError(ErrInvalidSchema, typeName(proto), "", path, err)
	}

	matches := ResolveAll(n, p)
	items := make([]PT, 0, len(matches))
	for i, sub := range matches {
		elem := proto
		if i > 0 {
			if elem, err = newElement[T, PT](); err != nil {
				return newBindError(ErrSchemaInstantiation, typeName(proto), "", path, err)
			}
		}
		if err := b.bind(elem, sub); err != nil {
			return err
		}
		items = append(items, elem)
	}
	l.items = items
	return nil
}

// ElementSchema 返回元素类型的结构描述
func (l *List[T, PT]) ElementSchema() (*Schema, error) {
	return schemaFor(reflect.TypeOf(PT(nil)))
}

// Len 元素个数
func (l *List[T, PT]) Len() int {
	return len(l.items)
}

// At 返回下标 i 的元素，越界时 panic
func (l *List[T, PT]) At(i int) PT {
	return l.items[i]
}

// Set 替换下标 i 的元素，返回旧元素
func (l *List[T, PT]) Set(i int, elem PT) PT {
	old := l.items[i]
	l.items[i] = elem
	return old
}

// Append 追加元素
func (l *List[T, PT]) Append(elems ...PT) {
	l.items = append(l.items, elems...)
}

// Insert 在下标 i 处插入元素
func (l *List[T, PT]) Insert(i int, elem PT) {
	l.items = append(l.items, nil)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = elem
}

// Remove 删除并返回下标 i 的元素
func (l *List[T, PT]) Remove(i int) PT {
	removed := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	return removed
}

// Clear 清空列表
func (l *List[T, PT]) Clear() {
	l.items = nil
}

// IndexOf 返回元素（按指针比较）的下标，不存在时返回 -1
func (l *List[T, PT]) IndexOf(elem PT) int {
	for i, item := range l.items {
		if item == elem {
			return i
		}
	}
	return -1
}

// Contains 是否包含元素
func (l *List[T, PT]) Contains(elem PT) bool {
	return l.IndexOf(elem) >= 0
}

// Items 返回全部元素的副本
func (l *List[T, PT]) Items() []PT {
	out := make([]PT, len(l.items))
	copy(out, l.items)
	return out
}

// Slice 返回 [from, to) 区间元素的副本
func (l *List[T, PT]) Slice(from, to int) []PT {
	out := make([]PT, to-from)
	copy(out, l.items[from:to])
	return out
}

// All 按顺序遍历下标和元素
func (l *List[T, PT]) All() iter.Seq2[int, PT] {
	return func(yield func(int, PT) bool) {
		for i, item := range l.items {
			if !yield(i, item) {
				return
			}
		}
	}
}
