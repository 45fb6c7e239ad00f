package toml

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neko233-com/bind233-go/pkg/bind233/node"
)

const sampleTOML = `
[ParentConfig]
PropertyA = false
lastRun = 20171115091203

  [ParentConfig.ChildConfig]
  PropertyX = "Hello"
  PropertyY = true

[ListConfig]
"@listkey" = "app1"

  [[ListConfig.ListItemConfig]]
  "@id" = "TestProcess1"
  ListItemConfigProperty = "test1"

  [[ListConfig.ListItemConfig]]
  "@id" = "TestProcess2"
  ListItemConfigProperty = "test2"

[Server]
ports = [80, 443]
ratio = 0.5
started = 2017-12-12
`

// TestCodec_Decode 测试 TOML 解析为配置树
func TestCodec_Decode(t *testing.T) {
	root, err := NewCodec().Decode(strings.NewReader(sampleTOML))
	require.NoError(t, err)
	assert.Empty(t, root.Name)

	v, _ := root.Scalar(node.MustParsePath("ParentConfig.PropertyA"))
	assert.Equal(t, "false", v)
	v, _ = root.Scalar(node.MustParsePath("ParentConfig.lastRun"))
	assert.Equal(t, "20171115091203", v)
	v, _ = root.Scalar(node.MustParsePath("ParentConfig.ChildConfig.PropertyX"))
	assert.Equal(t, "Hello", v)

	v, _ = root.Scalar(node.MustParsePath("ListConfig[@listkey]"))
	assert.Equal(t, "app1", v)
	assert.Equal(t, []string{"TestProcess1", "TestProcess2"},
		root.Values(node.MustParsePath("ListConfig.ListItemConfig[@id]")))
	assert.Equal(t, []string{"test1", "test2"},
		root.Values(node.MustParsePath("ListConfig.ListItemConfig.ListItemConfigProperty")))

	assert.Equal(t, []string{"80", "443"}, root.Values(node.MustParsePath("Server.ports")))
	v, _ = root.Scalar(node.MustParsePath("Server.ratio"))
	assert.Equal(t, "0.5", v)
	v, _ = root.Scalar(node.MustParsePath("Server.started"))
	assert.Equal(t, "2017-12-12", v)
}

// TestCodec_EncodeRoundTrip 测试写出后再读入得到相同的树
func TestCodec_EncodeRoundTrip(t *testing.T) {
	codec := NewCodec()
	root, err := codec.Decode(strings.NewReader(sampleTOML))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, codec.Encode(&buf, root))
	assert.Contains(t, buf.String(), `PropertyX = 'Hello'`)

	again, err := codec.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, root.String(), again.String())
}

// TestCodec_DecodeErrors 测试非法文档
func TestCodec_DecodeErrors(t *testing.T) {
	_, err := NewCodec().Decode(strings.NewReader("a = "))
	assert.Error(t, err)

	_, err = NewCodec().Decode(strings.NewReader(`"@attr" = [1, 2]`))
	assert.Error(t, err)
}
