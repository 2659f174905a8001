package record

import (
	"time"

	"github.com/google/uuid"
)

// 所有记录都带的公共字段
const (
	FieldTimestamp        = "_timestamp"        // 毫秒时间戳
	FieldPlugin           = "plugin"            // 插件/采集器标识
	FieldDocumentType     = "_documentType"     // 记录类型
	FieldActualPluginType = "_actualPluginType" // 与 plugin 相同，兼容下游
	FieldHostname         = "_hostname"
	FieldTarget           = "_target" // 监控目标名称
	FieldCycleID          = "_cycleId"
)

// Record 最终下发的一条记录
type Record map[string]any

// DocumentType 记录类型
func (r Record) DocumentType() string {
	s, _ := r[FieldDocumentType].(string)
	return s
}

// Layout 某个记录类型的完整字段集合及其默认值
type Layout map[string]any

// Stamp 一个采集周期内所有记录共享的时间戳与周期 ID
type Stamp struct {
	CycleID string
	At      time.Time
}

// Millis 毫秒时间戳
func (s Stamp) Millis() int64 {
	return s.At.UnixMilli()
}

// Assembler 给解析结果补齐公共字段和默认值
type Assembler struct {
	plugin   string
	hostname string
	target   string
	now      func() time.Time
	newID    func() string
}

// Option Assembler 配置项
type Option func(*Assembler)

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// WithTarget 记录所属的监控目标
func WithTarget(target string) Option {
	return func(a *Assembler) { a.target = target }
}

// NewAssembler 创建记录组装器
func NewAssembler(plugin, hostname string, opts ...Option) *Assembler {
	a := &Assembler{
		plugin:   plugin,
		hostname: hostname,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Plugin 插件标识
func (a *Assembler) Plugin() string {
	return a.plugin
}

// NewStamp 每个采集周期调用一次
func (a *Assembler) NewStamp() Stamp {
	return Stamp{CycleID: a.newID(), At: a.now()}
}

// Assemble 组装一条记录：layout 中缺失或为 nil 的字段取默认值，公共字段总是覆盖写入
func (a *Assembler) Assemble(st Stamp, docType string, fields map[string]any, layout Layout) Record {
	r := make(Record, len(fields)+len(layout)+7)
	for k, def := range layout {
		r[k] = def
	}
	for k, v := range fields {
		if v == nil {
			if _, ok := layout[k]; ok {
				continue
			}
		}
		r[k] = v
	}

	r[FieldTimestamp] = st.Millis()
	r[FieldPlugin] = a.plugin
	r[FieldActualPluginType] = a.plugin
	r[FieldDocumentType] = docType
	r[FieldHostname] = a.hostname
	r[FieldCycleID] = st.CycleID
	if a.target != "" {
		r[FieldTarget] = a.target
	}
	return r
}

// AssembleBatch 按输入顺序组装多条记录
func (a *Assembler) AssembleBatch(st Stamp, docType string, rows []map[string]any, layout Layout) []Record {
	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, a.Assemble(st, docType, row, layout))
	}
	return out
}

// Allowed types 为空表示全部允许
func Allowed(types []string, docType string) bool {
	if len(types) == 0 {
		return true
	}
	for _, t := range types {
		if t == docType {
			return true
		}
	}
	return false
}
