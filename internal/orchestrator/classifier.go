package orchestrator

import "strings"

// classificationRule 分类关键字规则
type classificationRule struct {
	category Category
	keywords []string
}

// 按优先级排列,先命中者生效
var classificationRules = []classificationRule{
	{category: CategorySocial, keywords: []string{"post", "instagram", "social"}},
	{category: CategoryAutomation, keywords: []string{"email", "enviar"}},
	{category: CategoryCalendar, keywords: []string{"agendar", "reunião", "meeting"}},
	{category: CategoryCRM, keywords: []string{"lead", "crm", "contato"}},
}

// Classify 根据关键字把命令归类,未命中任何关键字时归为 content
//
// 匹配是大小写无关的子串匹配而不是分词匹配,"contatos" 同样会命中 crm。
func Classify(command string) Category {
	lower := strings.ToLower(command)
	for _, rule := range classificationRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lower, keyword) {
				return rule.category
			}
		}
	}
	return CategoryContent
}
