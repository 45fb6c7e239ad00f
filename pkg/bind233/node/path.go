package node

import (
	"fmt"
	"strconv"
	"strings"
)

// Step 路径中的一段
// Name 为空且 Attr 非空时表示当前节点的属性
type Step struct {
	Name  string // 子节点名
	Index int    // 同名兄弟节点下标，-1 表示全部
	Attr  string // 属性名，只允许出现在最后一段
}

// Path 解析后的配置路径
// 语法: a.b.c / a(1).b / [@attr] / a.b[@attr]
type Path struct {
	raw   string
	steps []Step
}

// ParsePath 解析配置路径
// 参数:
//
//	raw: 原始路径字符串，空字符串表示节点自身
//
// 返回值:
//
//	Path: 解析后的路径
//	error: 语法错误
func ParsePath(raw string) (Path, error) {
	p := Path{raw: raw}
	if strings.TrimSpace(raw) == "" {
		return p, nil
	}

	segments, err := splitSegments(raw)
	if err != nil {
		return Path{}, err
	}
	for i, seg := range segments {
		step, err := parseStep(seg)
		if err != nil {
			return Path{}, fmt.Errorf("路径 %q 第 %d 段非法: %w", raw, i+1, err)
		}
		if step.Attr != "" && i != len(segments)-1 {
			return Path{}, fmt.Errorf("路径 %q 中属性只能出现在最后一段", raw)
		}
		if step.Name == "" && step.Attr == "" {
			return Path{}, fmt.Errorf("路径 %q 含有空段", raw)
		}
		p.steps = append(p.steps, step)
	}
	return p, nil
}

// MustParsePath 解析路径，失败时 panic，仅用于常量路径
func MustParsePath(raw string) Path {
	p, err := ParsePath(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// String 返回原始路径
func (p Path) String() string {
	return p.raw
}

// IsEmpty 是否为空路径
func (p Path) IsEmpty() bool {
	return len(p.steps) == 0
}

// Steps 返回路径各段的副本
func (p Path) Steps() []Step {
	out := make([]Step, len(p.steps))
	copy(out, p.steps)
	return out
}

// Attr 返回末段属性名，没有则为空
func (p Path) Attr() string {
	if len(p.steps) == 0 {
		return ""
	}
	return p.steps[len(p.steps)-1].Attr
}

// splitSegments 按 '.' 切分，忽略方括号内的点
func splitSegments(raw string) ([]string, error) {
	var segments []string
	depth := 0
	start := 0
	for i, r := range raw {
		switch r {
		case '[':
			depth++
		case ']':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("路径 %q 括号不匹配", raw)
			}
		case '.':
			if depth == 0 {
				segments = append(segments, raw[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("路径 %q 括号不匹配", raw)
	}
	segments = append(segments, raw[start:])
	return segments, nil
}

func parseStep(seg string) (Step, error) {
	step := Step{Index: -1}
	seg = strings.TrimSpace(seg)

	if i := strings.Index(seg, "[@"); i >= 0 {
		if !strings.HasSuffix(seg, "]") {
			return step, fmt.Errorf("属性表达式 %q 缺少 ']'", seg)
		}
		step.Attr = seg[i+2 : len(seg)-1]
		if step.Attr == "" {
			return step, fmt.Errorf("属性名为空")
		}
		seg = seg[:i]
	}

	if i := strings.Index(seg, "("); i >= 0 {
		if !strings.HasSuffix(seg, ")") {
			return step, fmt.Errorf("下标表达式 %q 缺少 ')'", seg)
		}
		idx, err := strconv.Atoi(seg[i+1 : len(seg)-1])
		if err != nil || idx < 0 {
			return step, fmt.Errorf("下标 %q 非法", seg[i+1:len(seg)-1])
		}
		step.Index = idx
		seg = seg[:i]
		if seg == "" {
			return step, fmt.Errorf("下标前缺少节点名")
		}
	}

	step.Name = seg
	return step, nil
}
