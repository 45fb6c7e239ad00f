package bind233

import (
	"github.com/neko233-com/bind233-go/pkg/bind233/node"
)

// ResolveOne 在父子树下查找路径对应的第一个子树，不存在时返回 nil
// 是否必填由调用方判断
func ResolveOne(parent *node.Node, path node.Path) *node.Node {
	if parent == nil {
		return nil
	}
	return parent.ResolveOne(path)
}

// ResolveAll 在父子树下查找路径对应的全部子树，按文档顺序返回，可能为空
func ResolveAll(parent *node.Node, path node.Path) []*node.Node {
	if parent == nil {
		return nil
	}
	return parent.ResolveAll(path)
}
