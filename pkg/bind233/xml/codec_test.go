package xml

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neko233-com/bind233-go/pkg/bind233/node"
)

const parentXML = `<Config>
  <ParentConfig>
    <PropertyA>false</PropertyA>
    <lastRun>20171115091203</lastRun>
    <ChildConfig>
      <PropertyX> Hello </PropertyX>
      <PropertyY>true</PropertyY>
    </ChildConfig>
  </ParentConfig>
  <ListConfig listkey="app1">
    <ListItemConfig id="TestProcess1"/>
    <ListItemConfig id="TestProcess2"/>
  </ListConfig>
</Config>`

// TestCodec_Decode 测试 XML 解析为配置树
func TestCodec_Decode(t *testing.T) {
	root, err := NewCodec().Decode(strings.NewReader(parentXML))
	require.NoError(t, err)

	assert.Equal(t, "Config", root.Name)
	v, ok := root.Scalar(node.MustParsePath("ParentConfig.ChildConfig.PropertyX"))
	require.True(t, ok)
	assert.Equal(t, "Hello", v)

	assert.Equal(t, []string{"TestProcess1", "TestProcess2"},
		root.Values(node.MustParsePath("ListConfig.ListItemConfig[@id]")))
	assert.Empty(t, root.ResolveOne(node.MustParsePath("ParentConfig")).Text)
}

// TestCodec_EncodeRoundTrip 测试写出后再读入得到相同的树
func TestCodec_EncodeRoundTrip(t *testing.T) {
	codec := NewCodec()
	root, err := codec.Decode(strings.NewReader(parentXML))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, codec.Encode(&buf, root))
	assert.True(t, strings.HasPrefix(buf.String(), `<?xml version="1.0" encoding="UTF-8"?>`))

	again, err := codec.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, root.String(), again.String())
}

// TestCodec_EncodeNamelessRoot 测试无名根节点使用默认根元素名
func TestCodec_EncodeNamelessRoot(t *testing.T) {
	root := node.New("")
	root.AddChild(node.NewText("a", "1"))

	var buf bytes.Buffer
	require.NoError(t, NewCodec().Encode(&buf, root))
	assert.Contains(t, buf.String(), "<Config>")
	assert.Contains(t, buf.String(), "<a>1</a>")
}

// TestCodec_DecodeErrors 测试非法文档
func TestCodec_DecodeErrors(t *testing.T) {
	_, err := NewCodec().Decode(strings.NewReader(""))
	assert.Error(t, err)

	_, err = NewCodec().Decode(strings.NewReader("<a><b></a>"))
	assert.Error(t, err)
}

// TestLooksLikeXML 测试内联文档识别
func TestLooksLikeXML(t *testing.T) {
	assert.True(t, LooksLikeXML(parentXML))
	assert.True(t, LooksLikeXML("  <Config/>  "))
	assert.False(t, LooksLikeXML("config.xml"))
	assert.False(t, LooksLikeXML("<not closed"))
}
