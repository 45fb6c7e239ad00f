package bind233

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestList_Bind 测试列表元素按文档顺序绑定，列表自身属性同时绑定
func TestList_Bind(t *testing.T) {
	list := &ListConfig{}
	require.NoError(t, BindPath(list, loadXML(t, listItemsXML)))

	assert.Equal(t, "app1", list.ListKey)
	require.Equal(t, 3, list.Len())
	assert.Equal(t, "TestProcess1", list.At(0).ID)
	assert.Equal(t, "test1", list.At(0).Property)
	assert.Equal(t, "TestProcess3", list.At(2).ID)
	assert.Equal(t, "test3", list.At(2).Property)
	assert.Equal(t, "ListItemConfig", list.At(1).Node().Name)
}

// TestList_RebindReplacesItems 测试重新绑定后元素个数与新文档一致，不残留旧元素
func TestList_RebindReplacesItems(t *testing.T) {
	list := &ListConfig{}
	require.NoError(t, BindPath(list, loadXML(t, listItemsXML)))
	first := list.At(0)

	require.NoError(t, BindPath(list, loadXML(t, `<Config><ListConfig/></Config>`)))
	assert.Equal(t, 0, list.Len())
	assert.Empty(t, list.ListKey)

	require.NoError(t, BindPath(list, loadXML(t, `<Config><ListConfig listkey="app2">
		<ListItemConfig id="a"><ListItemConfigProperty>x</ListItemConfigProperty></ListItemConfig>
		<ListItemConfig id="b"><ListItemConfigProperty>y</ListItemConfigProperty></ListItemConfig>
	</ListConfig></Config>`)))
	require.Equal(t, 2, list.Len())
	assert.Equal(t, "app2", list.ListKey)
	assert.Equal(t, "a", list.At(0).ID)
	assert.Equal(t, "b", list.At(1).ID)
	assert.False(t, list.Contains(first))
}

// TestList_FailedRebindKeepsItems 测试元素绑定失败时保留旧元素
func TestList_FailedRebindKeepsItems(t *testing.T) {
	list := &ListConfig{}
	require.NoError(t, BindPath(list, loadXML(t, listItemsXML)))

	err := BindPath(list, loadXML(t, `<Config><ListConfig>
		<ListItemConfig id="ok"><ListItemConfigProperty>x</ListItemConfigProperty></ListItemConfig>
		<ListItemConfig id="broken"/>
	</ListConfig></Config>`))
	require.ErrorIs(t, err, ErrMissingRequiredPath)
	assert.Equal(t, 3, list.Len())
	assert.Equal(t, "TestProcess1", list.At(0).ID)
}

// TestList_Operations 测试列表的增删改查
func TestList_Operations(t *testing.T) {
	list := &ListConfig{}
	a := &ListItemConfig{ID: "a"}
	b := &ListItemConfig{ID: "b"}
	c := &ListItemConfig{ID: "c"}

	list.Append(a, c)
	list.Insert(1, b)
	require.Equal(t, 3, list.Len())
	assert.Equal(t, []*ListItemConfig{a, b, c}, list.Items())
	assert.Equal(t, 1, list.IndexOf(b))
	assert.True(t, list.Contains(c))
	assert.Equal(t, -1, list.IndexOf(&ListItemConfig{ID: "a"}))

	d := &ListItemConfig{ID: "d"}
	old := list.Set(2, d)
	assert.Same(t, c, old)
	assert.Equal(t, []*ListItemConfig{b, d}, list.Slice(1, 3))

	removed := list.Remove(0)
	assert.Same(t, a, removed)
	assert.Equal(t, 2, list.Len())

	items := list.Items()
	items[0] = nil
	assert.Same(t, b, list.At(0))

	var ids []string
	for i, item := range list.All() {
		ids = append(ids, item.ID)
		if i == 0 {
			break
		}
	}
	assert.Equal(t, []string{"b"}, ids)

	list.Clear()
	assert.Equal(t, 0, list.Len())
}

// TestList_ElementSchema 测试元素结构描述
func TestList_ElementSchema(t *testing.T) {
	schema, err := (&ListConfig{}).ElementSchema()
	require.NoError(t, err)
	assert.Equal(t, "ListItemConfig", schema.Path)
	assert.Len(t, schema.Fields, 2)
}

type pathlessItem struct {
	Base
	Value string `bind233:"value"`
}

type pathlessList struct {
	List[pathlessItem, *pathlessItem] `bind233:"ListConfig"`
}

// TestList_MissingElementPath 测试元素类型没有路径
func TestList_MissingElementPath(t *testing.T) {
	err := BindPath(&pathlessList{}, loadXML(t, listItemsXML))
	assert.ErrorIs(t, err, ErrMissingConfigPath)
}

// StringListConfig 重复的同名子节点绑定为字符串列表
type StringListConfig struct {
	Base       `bind233:"ListConfig"`
	Properties []string `bind233:"ListItemConfigProperty"`
	Fallback   []string `bind233:"missing" default:"x, y"`
}

// TestBind_StringList 测试字符串列表字段
func TestBind_StringList(t *testing.T) {
	root := loadXML(t, `<Config><ListConfig>
		<ListItemConfigProperty>test1</ListItemConfigProperty>
		<ListItemConfigProperty>test2</ListItemConfigProperty>
		<ListItemConfigProperty>test3</ListItemConfigProperty>
	</ListConfig></Config>`)
	cfg := &StringListConfig{}
	require.NoError(t, BindPath(cfg, root))
	assert.Equal(t, []string{"test1", "test2", "test3"}, cfg.Properties)
	assert.Equal(t, []string{"x", "y"}, cfg.Fallback)
}
