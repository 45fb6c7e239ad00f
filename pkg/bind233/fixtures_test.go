package bind233

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"github.com/neko233-com/bind233-go/pkg/bind233/node"
	xmlcodec "github.com/neko233-com/bind233-go/pkg/bind233/xml"
)

const parentChildXML = `<Config>
  <ParentConfig>
    <ChildConfig>
      <PropertyX>Hello</PropertyX>
      <PropertyY>true</PropertyY>
    </ChildConfig>
    <PropertyA>false</PropertyA>
    <lastRun>20171115091203</lastRun>
  </ParentConfig>
</Config>`

const listItemsXML = `<Config>
  <ListConfig listkey="app1">
    <ListItemConfig id="TestProcess1">
      <ListItemConfigProperty>test1</ListItemConfigProperty>
    </ListItemConfig>
    <ListItemConfig id="TestProcess2">
      <ListItemConfigProperty>test2</ListItemConfigProperty>
    </ListItemConfig>
    <ListItemConfig id="TestProcess3">
      <ListItemConfigProperty>test3</ListItemConfigProperty>
    </ListItemConfig>
  </ListConfig>
</Config>`

const recursionXML = `<config>
  <filter className="fClass1">
    <success command="command1" actor="actor1"/>
    <fail>
      <filter className="fClass2">
        <success command="command2" actor="actor2"/>
        <fail command="command3" actor="actor3"/>
      </filter>
    </fail>
  </filter>
</config>`

// ChildConfig 嵌套对象，路径来自嵌入字段标签
type ChildConfig struct {
	Base      `bind233:"ChildConfig"`
	PropertyX string `bind233:"PropertyX"`
	PropertyY bool   `bind233:"PropertyY" default:"false"`
}

// ParentConfig 根对象，嵌套字段未加标签，使用子对象自身路径
type ParentConfig struct {
	Base      `bind233:"ParentConfig"`
	PropertyA bool   `bind233:"PropertyA"`
	LastRun   string `bind233:"lastRun"`
	Child     *ChildConfig
}

// ManualParent 通过 ConfigPath 提供路径，并在 AfterBind 中手工读取
type ManualParent struct {
	Base
	PropertyA   bool
	LastRunDate time.Time
	afterCalls  int
}

const lastRunLayout = "20060102150405"

func (m *ManualParent) ConfigPath() string {
	return "ParentConfig"
}

func (m *ManualParent) AfterBind() error {
	m.afterCalls++
	v, ok := m.Node().Scalar(node.MustParsePath("PropertyA"))
	if !ok {
		return fmt.Errorf("缺少 PropertyA")
	}
	m.PropertyA = strings.EqualFold(v, "true")
	if raw, ok := m.Node().Scalar(node.MustParsePath("lastRun")); ok && raw != "" {
		d, err := time.ParseInLocation(lastRunLayout, raw, time.Local)
		if err != nil {
			return err
		}
		m.LastRunDate = d
	}
	return nil
}

// SetLastRunDate 更新字段并写回文档
func (m *ManualParent) SetLastRunDate(d time.Time) error {
	m.LastRunDate = d
	return m.WriteProperty("lastRun", d.Format(lastRunLayout))
}

// ListItemConfig 列表元素
type ListItemConfig struct {
	Base     `bind233:"ListItemConfig"`
	ID       string `bind233:"[@id]"`
	Property string `bind233:"ListItemConfigProperty"`
}

// ListConfig 列表对象，同时绑定自身属性
type ListConfig struct {
	List[ListItemConfig, *ListItemConfig] `bind233:"ListConfig"`
	ListKey string `bind233:"[@listkey]" default:"null"`
}

// FilterConfig 递归结构：filter -> success/fail -> filter
type FilterConfig struct {
	Base      `bind233:"filter"`
	ClassName string        `bind233:"[@className]"`
	Success   *BranchConfig `bind233:"success" default:"null"`
	Fail      *BranchConfig `bind233:"fail" default:"null"`
}

// BranchConfig 分支，可能再次包含 filter
type BranchConfig struct {
	Base
	Command *string       `bind233:"[@command]" default:"null"`
	Actor   *string       `bind233:"[@actor]" default:"null"`
	Filter  *FilterConfig `bind233:"filter" default:"null"`
}

// Color 测试用枚举
type Color int

const (
	Red Color = iota
	Green
	Blue
)

func (Color) EnumNames() []string {
	return []string{"RED", "GREEN", "BLUE"}
}

// fixedClock 返回固定时刻的时钟
func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 9, 30, 15, 123, time.Local)
}

func loadXML(t *testing.T, text string) *node.Node {
	t.Helper()
	doc, err := node.ReadString(text, xmlcodec.NewCodec())
	require.NoError(t, err)
	return doc.Root()
}

// ignoreBase 比较配置对象时忽略绑定状态
var ignoreBase = cmp.Options{
	cmpopts.IgnoreTypes(Base{}),
	cmpopts.IgnoreUnexported(ManualParent{}),
}

var mustPath = node.MustParsePath
