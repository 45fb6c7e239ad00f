package bind233

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBind_ParentChild 测试父对象与未加标签的嵌套子对象
func TestBind_ParentChild(t *testing.T) {
	root := loadXML(t, parentChildXML)
	parent := &ParentConfig{}
	require.NoError(t, BindPath(parent, root, BindLogger(testr.New(t))))

	want := &ParentConfig{
		PropertyA: false,
		LastRun:   "20171115091203",
		Child:     &ChildConfig{PropertyX: "Hello", PropertyY: true},
	}
	if diff := cmp.Diff(want, parent, ignoreBase); diff != "" {
		t.Errorf("绑定结果不符 (-want +got):\n%s", diff)
	}
	assert.True(t, parent.IsBound())
	assert.Equal(t, "ParentConfig", parent.Node().Name)
	assert.Equal(t, "ChildConfig", parent.Child.Node().Name)
}

// TestBind_Idempotent 测试同一文档重复绑定结果不变，子对象实例被复用
func TestBind_Idempotent(t *testing.T) {
	root := loadXML(t, parentChildXML)
	parent := &ParentConfig{}
	require.NoError(t, BindPath(parent, root))
	child := parent.Child

	require.NoError(t, BindPath(parent, root))
	assert.Same(t, child, parent.Child)
	assert.Equal(t, "Hello", parent.Child.PropertyX)
}

// TestBind_NilSubtree 测试子树为空时返回 ErrMissingRequiredPath
func TestBind_NilSubtree(t *testing.T) {
	err := Bind(&ParentConfig{}, nil)
	assert.ErrorIs(t, err, ErrMissingRequiredPath)
}

type DataTypesConfig struct {
	Base         `bind233:"DataTypesConfig"`
	BooleanValue bool      `bind233:"booleanValue"`
	IntegerValue int       `bind233:"integerValue"`
	LongValue    int64     `bind233:"longValue"`
	DoubleValue  float64   `bind233:"doubleValue"`
	FloatValue   float32   `bind233:"floatValue"`
	StringValue  string    `bind233:"StringValue"`
	EnumValue    Sample    `bind233:"enumValue"`
	Date         time.Time `bind233:"dateValue"`
	DateTime     time.Time `bind233:"parsableDateTime" parser:"ParseDateTime"`

	BooleanObj *bool    `bind233:"booleanValue"`
	IntegerObj *int     `bind233:"integerValue"`
	LongObj    *int64   `bind233:"longValue"`
	DoubleObj  *float64 `bind233:"doubleValue"`
	FloatObj   *float32 `bind233:"floatValue"`
	EnumObj    *Sample  `bind233:"enumValue"`
}

func (d *DataTypesConfig) ParseDateTime(v string) error {
	t, err := time.ParseInLocation(lastRunLayout, v, time.Local)
	if err != nil {
		return err
	}
	d.DateTime = t
	return nil
}

// Sample 测试用枚举，对应文档中的常量名
type Sample uint8

const (
	SampleUnknown Sample = iota
	SampleOne
	SampleTwo
)

func (Sample) EnumNames() []string {
	return []string{"UNKNOWN", "SAMPLE", "SAMPLE2"}
}

const dataTypesXML = `<Config>
  <DataTypesConfig>
    <booleanValue>true</booleanValue>
    <integerValue>3</integerValue>
    <longValue>3000000000000</longValue>
    <doubleValue>2.12345678910</doubleValue>
    <floatValue>6.5</floatValue>
    <StringValue>Test</StringValue>
    <enumValue>SAMPLE</enumValue>
    <dateValue>12/12/2017</dateValue>
    <parsableDateTime>20171109155731</parsableDateTime>
  </DataTypesConfig>
</Config>`

// TestBind_DataTypes 测试各类字段类型与解析方法
func TestBind_DataTypes(t *testing.T) {
	root := loadXML(t, dataTypesXML)
	cfg := &DataTypesConfig{}
	require.NoError(t, BindPath(cfg, root, BindClock(fixedClock)))

	assert.True(t, cfg.BooleanValue)
	assert.Equal(t, 3, cfg.IntegerValue)
	assert.Equal(t, int64(3000000000000), cfg.LongValue)
	assert.InDelta(t, 2.12345678910, cfg.DoubleValue, 1e-12)
	assert.Equal(t, float32(6.5), cfg.FloatValue)
	assert.Equal(t, "Test", cfg.StringValue)
	assert.Equal(t, SampleOne, cfg.EnumValue)
	assert.True(t, time.Date(2017, 12, 12, 9, 30, 15, 0, time.Local).Equal(cfg.Date), "got %v", cfg.Date)
	assert.True(t, time.Date(2017, 11, 9, 15, 57, 31, 0, time.Local).Equal(cfg.DateTime), "got %v", cfg.DateTime)

	require.NotNil(t, cfg.BooleanObj)
	assert.True(t, *cfg.BooleanObj)
	require.NotNil(t, cfg.IntegerObj)
	assert.Equal(t, 3, *cfg.IntegerObj)
	require.NotNil(t, cfg.LongObj)
	assert.Equal(t, int64(3000000000000), *cfg.LongObj)
	require.NotNil(t, cfg.DoubleObj)
	require.NotNil(t, cfg.FloatObj)
	require.NotNil(t, cfg.EnumObj)
	assert.Equal(t, SampleOne, *cfg.EnumObj)
}

type DefaultsConfig struct {
	Base        `bind233:"DataTypesConfig"`
	Present     string    `bind233:"StringValue" default:"unused"`
	Missing     int64     `bind233:"missingValue" default:"3000000000"`
	MissingEnum Sample    `bind233:"missingEnum" default:"SAMPLE2"`
	MissingDate time.Time `bind233:"missingDate" default:"01/31/2020"`
	NullInt     *int      `bind233:"missingInt" default:"null"`
	NullString  string    `bind233:"missingString" default:"null"`
	Tags        []string  `bind233:"missingTags" default:"a, b,c"`
	Flag        *bool     `bind233:"missingFlag" default:"true"`
}

// TestBind_Defaults 测试路径不存在时使用默认值
func TestBind_Defaults(t *testing.T) {
	root := loadXML(t, dataTypesXML)
	one := 1
	cfg := &DefaultsConfig{NullInt: &one, NullString: "stale"}
	require.NoError(t, BindPath(cfg, root, BindDateOnly()))

	assert.Equal(t, "Test", cfg.Present)
	assert.Equal(t, int64(3000000000), cfg.Missing)
	assert.Equal(t, SampleTwo, cfg.MissingEnum)
	assert.True(t, time.Date(2020, 1, 31, 0, 0, 0, 0, time.Local).Equal(cfg.MissingDate))
	assert.Nil(t, cfg.NullInt)
	assert.Empty(t, cfg.NullString)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Tags)
	require.NotNil(t, cfg.Flag)
	assert.True(t, *cfg.Flag)
}

type badDefaultConfig struct {
	Base  `bind233:"DataTypesConfig"`
	Count int `bind233:"missingCount" default:"many"`
}

// TestBind_BadDefault 测试非法默认值在绑定时报告类型转换错误
func TestBind_BadDefault(t *testing.T) {
	err := BindPath(&badDefaultConfig{}, loadXML(t, dataTypesXML))
	require.ErrorIs(t, err, ErrTypeCoercion)
	assert.Contains(t, err.Error(), `"many"`)
}

type requiredMissingConfig struct {
	Base     `bind233:"DataTypesConfig"`
	Required string `bind233:"notThere"`
}

// TestBind_MissingRequired 测试必填路径不存在
func TestBind_MissingRequired(t *testing.T) {
	err := BindPath(&requiredMissingConfig{}, loadXML(t, dataTypesXML))
	require.ErrorIs(t, err, ErrMissingRequiredPath)

	var be *BindError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "Required", be.Field)
	assert.Equal(t, "notThere", be.Path)
}

type coercionFailConfig struct {
	Base  `bind233:"DataTypesConfig"`
	Value int `bind233:"StringValue"`
}

// TestBind_TypeCoercion 测试文本无法转换为字段类型
func TestBind_TypeCoercion(t *testing.T) {
	err := BindPath(&coercionFailConfig{}, loadXML(t, dataTypesXML))
	require.ErrorIs(t, err, ErrTypeCoercion)

	var be *BindError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "Value", be.Field)
	assert.NotNil(t, be.Err)
}

type parserFailConfig struct {
	Base  `bind233:"DataTypesConfig"`
	Value string `bind233:"StringValue" parser:"Reject"`
}

func (p *parserFailConfig) Reject(v string) error {
	return fmt.Errorf("拒绝 %q", v)
}

// TestBind_ParserError 测试解析方法返回错误
func TestBind_ParserError(t *testing.T) {
	err := BindPath(&parserFailConfig{}, loadXML(t, dataTypesXML))
	require.ErrorIs(t, err, ErrTypeCoercion)
	assert.Contains(t, err.Error(), "拒绝")
}

// TestBind_ParserNotFound 测试解析方法不存在
func TestBind_ParserNotFound(t *testing.T) {
	err := BindPath(&missingParser{}, loadXML(t, `<Config><Bad><when>x</when></Bad></Config>`))
	assert.ErrorIs(t, err, ErrParserMethodNotFound)
}

type nullParserConfig struct {
	Base   `bind233:"DataTypesConfig"`
	Called bool
	Value  string `bind233:"missing" default:"null" parser:"Mark"`
}

func (n *nullParserConfig) Mark(string) {
	n.Called = true
}

// TestBind_NullDefaultSkipsParser 测试 "null" 默认值不调用解析方法
func TestBind_NullDefaultSkipsParser(t *testing.T) {
	cfg := &nullParserConfig{}
	require.NoError(t, BindPath(cfg, loadXML(t, dataTypesXML)))
	assert.False(t, cfg.Called)
}

// TestBind_Recursion 测试 filter -> fail -> filter 的递归结构
func TestBind_Recursion(t *testing.T) {
	root := loadXML(t, recursionXML)
	filter := &FilterConfig{}
	require.NoError(t, BindPath(filter, root))

	assert.Equal(t, "fClass1", filter.ClassName)
	require.NotNil(t, filter.Success)
	assert.Equal(t, "command1", *filter.Success.Command)
	assert.Equal(t, "actor1", *filter.Success.Actor)
	assert.Nil(t, filter.Success.Filter)

	require.NotNil(t, filter.Fail)
	assert.Nil(t, filter.Fail.Command)
	assert.Nil(t, filter.Fail.Actor)
	inner := filter.Fail.Filter
	require.NotNil(t, inner)
	assert.Equal(t, "fClass2", inner.ClassName)
	assert.Equal(t, "command2", *inner.Success.Command)
	assert.Equal(t, "command3", *inner.Fail.Command)
	assert.Equal(t, "actor3", *inner.Fail.Actor)
	assert.Nil(t, inner.Fail.Filter)

	assert.Equal(t, "fail", filter.Fail.Path())
}

// TestBind_OptionalNestedReset 测试可选嵌套对象在路径消失后被清空
func TestBind_OptionalNestedReset(t *testing.T) {
	filter := &FilterConfig{}
	require.NoError(t, BindPath(filter, loadXML(t, recursionXML)))
	require.NotNil(t, filter.Fail)

	require.NoError(t, BindPath(filter, loadXML(t, `<config><filter className="solo"/></config>`)))
	assert.Equal(t, "solo", filter.ClassName)
	assert.Nil(t, filter.Success)
	assert.Nil(t, filter.Fail)
}

// TestBind_MissingNestedSubtree 测试未加标签的嵌套对象缺少子树
func TestBind_MissingNestedSubtree(t *testing.T) {
	root := loadXML(t, `<Config><ParentConfig><PropertyA>true</PropertyA><lastRun/></ParentConfig></Config>`)
	err := BindPath(&ParentConfig{}, root)
	require.ErrorIs(t, err, ErrMissingRequiredPath)

	var be *BindError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "Child", be.Field)
}

// TestBind_AfterBind 测试在 AfterBind 中手工读取子树
func TestBind_AfterBind(t *testing.T) {
	root := loadXML(t, parentChildXML)
	m := &ManualParent{}
	require.NoError(t, BindPath(m, root))

	assert.False(t, m.PropertyA)
	assert.True(t, time.Date(2017, 11, 15, 9, 12, 3, 0, time.Local).Equal(m.LastRunDate))
	assert.Equal(t, 1, m.afterCalls)

	require.NoError(t, BindPath(m, root))
	assert.Equal(t, 2, m.afterCalls)
}

type failingAfterBind struct {
	Base `bind233:"ParentConfig"`
}

func (f *failingAfterBind) AfterBind() error {
	return errors.New("校验失败")
}

// TestBind_AfterBindError 测试 AfterBind 错误归类为 ErrConfigLoad
func TestBind_AfterBindError(t *testing.T) {
	err := BindPath(&failingAfterBind{}, loadXML(t, parentChildXML))
	require.ErrorIs(t, err, ErrConfigLoad)
	assert.Contains(t, err.Error(), "校验失败")
}

// TestBind_WriteProperty 测试对象写回只修改自身子树
func TestBind_WriteProperty(t *testing.T) {
	root := loadXML(t, parentChildXML)
	m := &ManualParent{}
	require.NoError(t, BindPath(m, root))

	when := time.Date(2020, 5, 6, 7, 8, 9, 0, time.Local)
	require.NoError(t, m.SetLastRunDate(when))

	raw, ok := root.Scalar(mustPath("ParentConfig.lastRun"))
	require.True(t, ok)
	assert.Equal(t, "20200506070809", raw)

	require.NoError(t, m.WriteProperty("[@updated]", true))
	v, ok := root.Scalar(mustPath("ParentConfig[@updated]"))
	require.True(t, ok)
	assert.Equal(t, "true", v)
}

// TestBase_WritePropertyUnbound 测试未绑定对象无法写回
func TestBase_WritePropertyUnbound(t *testing.T) {
	err := (&ManualParent{}).WriteProperty("x", 1)
	assert.ErrorIs(t, err, ErrConfigLoad)
}

type LateChild struct {
	Base  `bind233:"ChildConfig"`
	Value string `bind233:"PropertyX"`
}

// TestBase_Attach 测试后注入的子对象立即绑定，并随父对象重新绑定
func TestBase_Attach(t *testing.T) {
	root := loadXML(t, parentChildXML)
	parent := &ParentConfig{}

	early := &LateChild{}
	require.NoError(t, parent.Attach(early))
	assert.False(t, early.IsBound())

	require.NoError(t, BindPath(parent, root))
	assert.Equal(t, "Hello", early.Value)

	late := &LateChild{}
	require.NoError(t, parent.Attach(late))
	assert.Equal(t, "Hello", late.Value)
	require.NoError(t, parent.Attach(late))
	assert.Len(t, parent.Attached(), 2)

	require.NoError(t, BindPath(parent, loadXML(t, `<Config><ParentConfig>
		<ChildConfig><PropertyX>Bye</PropertyX></ChildConfig>
		<PropertyA>true</PropertyA><lastRun>x</lastRun>
	</ParentConfig></Config>`)))
	assert.Equal(t, "Bye", early.Value)
	assert.Equal(t, "Bye", late.Value)
}

// TestBase_AttachFailureNotRetained 测试立即绑定失败的子对象不会留下
func TestBase_AttachFailureNotRetained(t *testing.T) {
	root := loadXML(t, parentChildXML)
	parent := &ParentConfig{}
	require.NoError(t, BindPath(parent, root))

	missing := &LateChild{}
	missing.SetPath("NoSuchChild")
	require.ErrorIs(t, parent.Attach(missing), ErrMissingRequiredPath)
	assert.Empty(t, parent.Attached())

	require.NoError(t, BindPath(parent, root))
}

// TestBase_AttachWithoutPath 测试后注入对象缺少路径
func TestBase_AttachWithoutPath(t *testing.T) {
	err := (&ParentConfig{}).Attach(&BranchConfig{})
	assert.ErrorIs(t, err, ErrMissingConfigPath)
}

// Handler 接口类型的嵌套字段
type Handler interface {
	Configurable
	Name() string
}

type echoHandler struct {
	Base
	Label string `bind233:"[@label]"`
}

func (e *echoHandler) Name() string {
	return "echo:" + e.Label
}

type Pipeline struct {
	Base    `bind233:"pipeline"`
	Handler Handler `bind233:"handler"`
}

type Unregistered interface {
	Configurable
	Unregistered()
}

type brokenPipeline struct {
	Base    `bind233:"pipeline"`
	Handler Unregistered `bind233:"handler"`
}

// TestBind_InterfaceFactory 测试接口字段通过注册的构造函数实例化
func TestBind_InterfaceFactory(t *testing.T) {
	RegisterFactory(func() Handler { return &echoHandler{} })

	root := loadXML(t, `<root><pipeline><handler label="a"/></pipeline></root>`)
	p := &Pipeline{}
	require.NoError(t, BindPath(p, root))
	require.NotNil(t, p.Handler)
	assert.Equal(t, "echo:a", p.Handler.Name())

	err := BindPath(&brokenPipeline{}, root)
	require.ErrorIs(t, err, ErrSchemaInstantiation)
}

// TestBindError_Format 测试错误信息包含对象、字段和路径
func TestBindError_Format(t *testing.T) {
	err := newBindError(ErrTypeCoercion, "Cfg", "Port", "port", errors.New("bad"))
	assert.Equal(t, `类型转换失败: Cfg.Port (路径 "port"): bad`, err.Error())
	assert.ErrorIs(t, err, ErrTypeCoercion)
	assert.NotErrorIs(t, err, ErrConfigLoad)
}
