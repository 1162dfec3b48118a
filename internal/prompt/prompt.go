// Package prompt assembles the system context and the per-question prompt.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"github.com/capitalize-ai/sales-consultant/internal/model"
)

// DefaultPersona is the consultant's standing instruction block.
const DefaultPersona = "Você é um agente inteligente e consultor comercial da empresa Sucesso em Vendas. " +
	"Gostaria que me respondesse de forma objetiva e concisa, com uma explicação sobre e em seguida uma abordagem pratica de como fazer para resolver. " +
	"Seu papel é fornecer assistência especializada utilizando o método de vendas da Sucesso em Vendas e ajudar com conselhos comerciais para gerentes, coordenadores e vendedores."

// QuickPrompts are the canned inputs offered above the input box.
var QuickPrompts = []model.QuickPrompt{
	{
		Label: "Vender Produto",
		Text: "Me ajude a vender uma (...), preciso de ideias práticas e ações " +
			"aplicáveis para meu time vender esse produto, preciso que enfatize suas " +
			"qualidades reais e diferenciais e busque argumentos concisos que " +
			"naturalmente me ajudem com possíveis objeções.",
	},
	{
		Label: "Criar Treinamento",
		Text: "Me ajude a criar um treinamento de (...) com ferramentas e uma lógica de " +
			"apresentação. Destrinche os tópicos com conteúdos mais práticos e aplicáveis.",
	},
	{
		Label: "Estratégia de Marketing",
		Text: "Preciso de uma estratégia de marketing para aumentar a visibilidade e " +
			"engajamento do nosso produto. Inclua ideias inovadoras que possam ser " +
			"implementadas rapidamente e que aproveitem as tendências atuais do mercado.",
	},
}

// BuildContext joins the persona and the material corpus with a blank line.
// An empty corpus yields the persona alone.
func BuildContext(persona, corpus string) string {
	if corpus == "" {
		return persona
	}
	return persona + "\n\n" + corpus
}

// BuildPrompt places the user's question after the context.
func BuildPrompt(context, userInput string) string {
	var b strings.Builder
	b.Grow(len(context) + len(userInput) + 24)
	b.WriteString(context)
	b.WriteString("\n\nUser: ")
	b.WriteString(userInput)
	b.WriteString("\nAssistant:")
	return b.String()
}

// LoadPersona reads a persona override, falling back to DefaultPersona when
// path is empty.
func LoadPersona(path string) (string, error) {
	if path == "" {
		return DefaultPersona, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read persona file: %w", err)
	}
	persona := strings.TrimSpace(string(data))
	if persona == "" {
		return "", fmt.Errorf("persona file %s is empty", path)
	}
	return persona, nil
}
