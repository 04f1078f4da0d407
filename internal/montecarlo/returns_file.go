package montecarlo

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// 外部导入的逐笔收益文件格式：允许直接喂入别处算好的 trade returns，
// 不必先在本地重跑回测。returns 为小数口径，-1 表示单笔全亏。
const returnsSchema = `{
	"type": "object",
	"required": ["returns"],
	"properties": {
		"symbol": {"type": "string"},
		"source": {"type": "string"},
		"returns": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "number", "minimum": -1}
		}
	}
}`

// ReturnsFile 是经过校验的外部收益输入。
type ReturnsFile struct {
	Symbol  string    `json:"symbol"`
	Source  string    `json:"source"`
	Returns []float64 `json:"returns"`
}

var compiledReturnsSchema = jsonschema.MustCompileString("returns.json", returnsSchema)

// LoadReturnsFile 读取并校验逐笔收益 JSON 文件。
// 结构不合法（缺 returns、混入非数值、收益小于 -1）直接报错，
// 不让脏数据流进重放。
func LoadReturnsFile(path string) (ReturnsFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return ReturnsFile{}, fmt.Errorf("读取收益文件失败: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return ReturnsFile{}, fmt.Errorf("收益文件不是合法 JSON: %w", err)
	}
	if err := compiledReturnsSchema.Validate(doc); err != nil {
		return ReturnsFile{}, fmt.Errorf("收益文件结构校验失败: %w", err)
	}
	var out ReturnsFile
	if err := json.Unmarshal(raw, &out); err != nil {
		return ReturnsFile{}, err
	}
	out.Symbol = strings.TrimSpace(out.Symbol)
	return out, nil
}
