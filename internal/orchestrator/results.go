package orchestrator

import (
	"math/rand"
	"sync"
	"time"
)

// ResultCatalog 执行成功后可能给出的结果
var ResultCatalog = []string{
	"Tarefa executada com sucesso",
	"Automação configurada e ativa",
	"Conteúdo gerado e publicado",
	"Email enviado para lista de contatos",
	"Agendamento realizado",
	"Lead adicionado ao CRM",
	"Relatório gerado e enviado",
}

// ResultPicker 为完成的任务挑选结果文本
type ResultPicker interface {
	Pick(task Task) string
}

// RandomPicker 从目录中均匀随机挑选
type RandomPicker struct {
	mu      sync.Mutex
	rnd     *rand.Rand
	catalog []string
}

// NewRandomPicker 创建随机挑选器,source 为空时以当前时间作为种子
func NewRandomPicker(source rand.Source, catalog []string) *RandomPicker {
	if source == nil {
		source = rand.NewSource(time.Now().UnixNano())
	}
	if len(catalog) == 0 {
		catalog = ResultCatalog
	}
	return &RandomPicker{
		rnd:     rand.New(source),
		catalog: catalog,
	}
}

// Pick 实现 ResultPicker
func (p *RandomPicker) Pick(_ Task) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.catalog[p.rnd.Intn(len(p.catalog))]
}

// FixedPicker 总是返回同一条结果
type FixedPicker string

// Pick 实现 ResultPicker
func (p FixedPicker) Pick(_ Task) string {
	return string(p)
}
