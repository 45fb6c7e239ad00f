package hcl

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neko233-com/bind233-go/pkg/bind233/node"
)

const sampleHCL = `
name    = "demo"
ports   = [80, 443]
limits  = { cpu = 2, mem = "1Gi" }
enabled = true

service "web" "primary" {
  replicas = 3
}

service "api" {
  replicas = 1
}
`

// TestCodec_Decode 测试属性、列表、对象和块的映射
func TestCodec_Decode(t *testing.T) {
	root, err := NewCodec().Decode(strings.NewReader(sampleHCL))
	require.NoError(t, err)

	v, _ := root.Scalar(node.MustParsePath("name"))
	assert.Equal(t, "demo", v)
	assert.Equal(t, []string{"80", "443"}, root.Values(node.MustParsePath("ports")))
	v, _ = root.Scalar(node.MustParsePath("limits.mem"))
	assert.Equal(t, "1Gi", v)
	v, _ = root.Scalar(node.MustParsePath("enabled"))
	assert.Equal(t, "true", v)

	assert.Equal(t, []string{"web", "api"}, root.Values(node.MustParsePath("service[@label]")))
	assert.Equal(t, []string{"primary"}, root.Values(node.MustParsePath("service[@label2]")))
	assert.Equal(t, []string{"3", "1"}, root.Values(node.MustParsePath("service.replicas")))

	names := make([]string, 0, len(root.Children))
	for _, c := range root.Children {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"name", "ports", "ports", "limits", "enabled", "service", "service"}, names)
}

// TestCodec_EncodeRoundTrip 测试写出后再读入得到相同的树
func TestCodec_EncodeRoundTrip(t *testing.T) {
	codec := NewCodec()
	root, err := codec.Decode(strings.NewReader(sampleHCL))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, codec.Encode(&buf, root))
	assert.Contains(t, buf.String(), `service "web" "primary" {`)

	again, err := codec.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, root.String(), again.String())
}

// TestCodec_DecodeErrors 测试语法错误与无法静态计算的表达式
func TestCodec_DecodeErrors(t *testing.T) {
	_, err := NewCodec().Decode(strings.NewReader(`name = `))
	assert.ErrorContains(t, err, "解析 HCL 失败")

	_, err = NewCodec().Decode(strings.NewReader(`name = var.x`))
	assert.Error(t, err)
}

// TestLabelAttr 测试块标签属性名
func TestLabelAttr(t *testing.T) {
	assert.Equal(t, "label", LabelAttr(0))
	assert.Equal(t, "label3", LabelAttr(2))
	assert.True(t, isLabel("label2"))
	assert.False(t, isLabel("labels"))
}
