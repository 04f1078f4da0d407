package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)

	SetLevel("warn")
	Infof("不应出现")
	Warnf("警告内容")
	assert.NotContains(t, buf.String(), "不应出现")
	assert.Contains(t, buf.String(), "警告内容")

	// 未识别的级别回落到 info
	SetLevel("verbose")
	buf.Reset()
	Infof("又能看到了")
	assert.Contains(t, buf.String(), "又能看到了")
}

func TestInfoBlockSplitsLines(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	SetLevel("info")

	InfoBlock("第一行\n第二行\n")
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "第一行")
	assert.Contains(t, lines[1], "第二行")

	buf.Reset()
	InfoBlock("   ")
	assert.Empty(t, buf.String())
}
