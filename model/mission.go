package model

import (
	"fmt"
	"strings"
)

// Mission 主题任务（可持续发展目标 ODS），MissionNone 为未选择
type Mission string

const MissionNone Mission = "NONE"

type missionInfo struct {
	Label       string
	Instruction string
}

var missionCatalog = map[Mission]missionInfo{
	"ODS1":  {"Erradicação da Pobreza", "Incorpore elementos visuais que simbolizam esperança e prosperidade, como correntes douradas se quebrando ou uma aura de luz que emana do peito do herói."},
	"ODS2":  {"Fome Zero e Agricultura Sustentável", "O herói deve interagir com plantas que crescem rapidamente ou espigas de trigo douradas luminosas que flutuam ao seu redor."},
	"ODS3":  {"Saúde e Bem-Estar", "Adicione um símbolo de batimento cardíaco de neon no peito do herói ou uma aura de energia verde-esmeralda curativa envolvendo suas mãos."},
	"ODS4":  {"Educação de Qualidade", "O herói deve estar manipulando ou cercado por livros antigos com capas brilhantes e páginas que emitem luz."},
	"ODS5":  {"Igualdade de Gênero", "Incorpore o símbolo de igualdade (=) como um glifo de energia flutuando entre as mãos do herói, ou um equilíbrio visual entre as cores azul e amarela no traje."},
	"ODS6":  {"Água Potável e Saneamento", "O herói deve controlar esferas de água cristalina e pura, fazendo-as levitar ou girar ao seu redor."},
	"ODS7":  {"Energia Limpa e Acessível", "Faça com que o herói segure um pequeno sol em miniatura em sua mão ou tenha asas estilizadas feitas de painéis solares futuristas."},
	"ODS8":  {"Trabalho Decente e Crescimento Econômico", "Incorpore gráficos de crescimento de neon ascendentes ao fundo ou ferramentas de luz sólida (martelo, engrenagem) nas mãos do herói."},
	"ODS9":  {"Indústria, Inovação e Infraestrutura", "O corpo do herói deve ter linhas de circuito de neon visíveis sob a pele, e ele deve estar montando uma estrutura holográfica."},
	"ODS10": {"Redução das Desigualdades", "O herói deve estar quebrando barreiras de vidro ou luz, simbolizando a quebra de desigualdades, com um efeito de estilhaços energéticos."},
	"ODS11": {"Cidades e Comunidades Sustentáveis", "Adicione silhuetas holográficas de edifícios futuristas e ecológicos que o herói parece estar protegendo ou construindo com sua energia."},
	"ODS12": {"Consumo e Produção Responsáveis", "O herói deve ter o símbolo de reciclagem (setas em ciclo) brilhando em suas costas ou como um escudo de energia."},
	"ODS13": {"Ação Contra a Mudança Global do Clima", "Uma metade do herói deve ser coberta de gelo cristalino e a outra de chamas controladas, mostrando domínio sobre os extremos climáticos."},
	"ODS14": {"Vida na Água", "Faça com que criaturas marinhas de luz, como águas-vivas ou peixes de neon, nadem graciosamente ao redor do herói."},
	"ODS15": {"Vida Terrestre", "O herói deve ter vinhas luminosas crescendo em seus braços, e borboletas ou pássaros de energia pura voando perto dele."},
	"ODS16": {"Paz, Justiça e Instituições Eficazes", "O herói deve segurar uma balança da justiça brilhante ou ter uma pomba branca feita de energia pousada em seu ombro."},
	"ODS17": {"Parcerias e Meios de Implementação", "Adicione múltiplos anéis de luz interconectados que giram em torno do herói, simbolizando parcerias e união global."},
}

const fallbackInstruction = "O personagem deve ser inspirador, com uma aura de poder sutil e brilhante."

// ParseMission 解析任务标签，大小写不敏感；空字符串视为 MissionNone
func ParseMission(s string) (Mission, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || s == string(MissionNone) {
		return MissionNone, nil
	}
	m := Mission(s)
	if _, ok := missionCatalog[m]; !ok {
		return MissionNone, fmt.Errorf("unknown mission %q", s)
	}
	return m, nil
}

// Missions 按编号顺序返回全部任务（不含 MissionNone）
func Missions() []Mission {
	out := make([]Mission, 0, len(missionCatalog))
	for i := 1; i <= len(missionCatalog); i++ {
		out = append(out, Mission(fmt.Sprintf("ODS%d", i)))
	}
	return out
}

func (m Mission) IsNone() bool {
	_, ok := missionCatalog[m]
	return !ok
}

func (m Mission) Label() string {
	if info, ok := missionCatalog[m]; ok {
		return info.Label
	}
	return ""
}

// Instruction 合并进生成提示词的主题指令
func (m Mission) Instruction() string {
	if info, ok := missionCatalog[m]; ok {
		return info.Instruction
	}
	return fallbackInstruction
}
