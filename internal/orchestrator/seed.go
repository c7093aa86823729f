package orchestrator

import "time"

// QuickCommands 命令输入框下方的快捷命令
var QuickCommands = []string{
	"Criar post sobre [tema] para Instagram",
	"Agendar reunião para [data/hora]",
	"Enviar relatório mensal por email",
	"Adicionar lead [nome] no CRM",
	"Gerar conteúdo para blog sobre [tema]",
	"Publicar story no Instagram",
}

// DefaultSeed 以前会话留下的三条任务,以 now 为基准倒推时间,按新到旧排列
func DefaultSeed(now time.Time) []Task {
	return []Task{
		{
			ID:        "seed-3",
			Command:   "Agendar reunião com equipe para sexta-feira",
			Category:  CategoryCalendar,
			Status:    StatusProcessing,
			CreatedAt: now.Add(-5 * time.Minute),
		},
		{
			ID:        "seed-1",
			Command:   "Criar post sobre tendências de IA para LinkedIn",
			Category:  CategorySocial,
			Status:    StatusCompleted,
			Result:    "Post criado e agendado para 14:00",
			CreatedAt: now.Add(-time.Hour),
		},
		{
			ID:        "seed-2",
			Command:   "Enviar relatório semanal por email",
			Category:  CategoryAutomation,
			Status:    StatusCompleted,
			Result:    "Email enviado para 15 contatos",
			CreatedAt: now.Add(-2 * time.Hour),
		},
	}
}
