package api

import (
	"strings"

	"github.com/AlexandrinoANP/ANP/internal/orchestrator"
	"github.com/gin-gonic/gin"
)

// DefaultLanguage 默认语言,面向巴西用户
const DefaultLanguage = "pt"

// I18nManager 国际化管理器
type I18nManager struct {
	messages map[string]map[string]string // lang -> key -> message
}

var defaultI18nManager *I18nManager

func init() {
	defaultI18nManager = NewI18nManager()
	defaultI18nManager.LoadMessages("pt", map[string]string{
		"success.ok":               "sucesso",
		"success.accepted":         "Comando recebido",
		"error.not_found":          "Tarefa não encontrada",
		"error.bad_request":        "Requisição inválida",
		"error.internal_error":     "Erro interno do servidor",
		"error.empty_command":      "O comando não pode estar vazio",
		"error.command_too_long":   "O comando é muito longo",
		"error.busy":               "Outro comando ainda está sendo processado",
		"error.too_many_requests":  "Muitas requisições",
		"status.pending":           "Pendente",
		"status.processing":        "Processando",
		"status.completed":         "Concluído",
		"status.error":             "Erro",
		"integration.connected":    "Conectado",
		"integration.disconnected": "Desconectado",
	})
	defaultI18nManager.LoadMessages("en", map[string]string{
		"success.ok":               "success",
		"success.accepted":         "Command received",
		"error.not_found":          "Task not found",
		"error.bad_request":        "Bad request",
		"error.internal_error":     "Internal server error",
		"error.empty_command":      "Command cannot be empty",
		"error.command_too_long":   "Command is too long",
		"error.busy":               "Another command is still being processed",
		"error.too_many_requests":  "Too many requests",
		"status.pending":           "Pending",
		"status.processing":        "Processing",
		"status.completed":         "Completed",
		"status.error":             "Error",
		"integration.connected":    "Connected",
		"integration.disconnected": "Disconnected",
	})
}

// NewI18nManager 创建国际化管理器
func NewI18nManager() *I18nManager {
	return &I18nManager{
		messages: make(map[string]map[string]string),
	}
}

// LoadMessages 加载语言消息
func (m *I18nManager) LoadMessages(lang string, messages map[string]string) {
	m.messages[lang] = messages
}

// Translate 翻译消息,找不到时回退到默认语言,再找不到返回 key
func (m *I18nManager) Translate(lang, key string) string {
	if messages, ok := m.messages[lang]; ok {
		if message, ok := messages[key]; ok {
			return message
		}
	}
	if lang != DefaultLanguage {
		if message, ok := m.messages[DefaultLanguage][key]; ok {
			return message
		}
	}
	return key
}

// I18nMiddleware 国际化中间件
func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		lang := DefaultLanguage

		// 查询参数优先于 Accept-Language
		if queryLang := c.Query("lang"); queryLang != "" {
			lang = normalizeLanguage(queryLang)
		} else if headerLang := c.GetHeader("Accept-Language"); headerLang != "" {
			lang = parseAcceptLanguage(headerLang)
		}

		c.Set("language", lang)
		c.Next()
	}
}

// GetLanguage 从上下文获取语言
func GetLanguage(c *gin.Context) string {
	if lang, exists := c.Get("language"); exists {
		if l, ok := lang.(string); ok {
			return l
		}
	}
	return DefaultLanguage
}

// T 翻译消息（使用默认管理器）
func T(c *gin.Context, key string) string {
	return defaultI18nManager.Translate(GetLanguage(c), key)
}

// StatusLabel 任务状态的展示文案
func StatusLabel(c *gin.Context, status orchestrator.Status) string {
	return T(c, "status."+string(status))
}

// normalizeLanguage 规范化语言代码,不支持的语言回退到默认语言
func normalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	switch {
	case strings.HasPrefix(lang, "pt"):
		return "pt"
	case strings.HasPrefix(lang, "en"):
		return "en"
	}
	return DefaultLanguage
}

// parseAcceptLanguage 解析 Accept-Language: pt-BR,pt;q=0.9,en;q=0.8
func parseAcceptLanguage(header string) string {
	parts := strings.Split(header, ",")
	lang := strings.TrimSpace(parts[0])
	if idx := strings.Index(lang, ";"); idx != -1 {
		lang = lang[:idx]
	}
	return normalizeLanguage(lang)
}
