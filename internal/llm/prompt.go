package llm

import "strings"

// ForecastMarker opens the installment-forecast section of the statement.
// Everything after it belongs to future invoices and must be ignored.
const ForecastMarker = "Compras parceladas - próximas faturas"

// lineShapeExample documents the concatenated per-line shape of statement
// rows: date, merchant, installment fraction and amount without reliable
// delimiters between them.
const lineShapeExample = `exemplo de dado a ser extraído: "07/06KABUM             12/12408,00". ` +
	`"07/06" = data, "KABUM" = estabelecimento, "12/12" = número de parcelas (parcela 12 de 12), "408,00" = valor.`

// BuildFormatPrompt composes the system message for the formatting pre-pass:
// keep only card-statement transaction lines, in prose form.
func BuildFormatPrompt(text string) string {
	parts := []string{
		"Você é um assistente especializado em limpar textos extraídos de PDFs de extratos bancários.",
		"1. Formate e imprima somente os lançamentos da fatura do cartão.",
		"2. Remova todas as informações que não sejam lançamentos da fatura do cartão.",
		"3. " + lineShapeExample,
		`4. Ignore os lançamentos que aparecem após "` + ForecastMarker + `".`,
	}
	return strings.Join(parts, "\n") + "\n\nTexto:\n" + text
}

// BuildStructuredPrompt composes the system message for the structured
// extraction: one JSON object with four equal-length arrays, one entry per
// transaction.
func BuildStructuredPrompt(text string) string {
	parts := []string{
		"Você é um assistente que transforma textos de extratos bancários em dados estruturados.",
		"Sua tarefa é extrair todos os lançamentos de compra e saque, lançamentos de produtos e serviços, outros lançamentos, e as compras parceladas.",
		"Para cada lançamento, extraia a data, nome do estabelecimento, valor e a quantidade de parcelas.",
		"",
		"Instruções detalhadas:",
		`1. Para lançamentos que não possuem o número de parcelas ao lado do nome do estabelecimento, considere a quantidade de parcelas como "0/0".`,
		"2. Para lançamentos que possuem o número de parcelas ao lado do nome do estabelecimento, informe corretamente as parcelas.",
		"3. Verifique duas vezes se as parcelas estão sendo extraídas corretamente.",
		`4. Retorne os dados em um único objeto JSON com quatro arrays de mesmo tamanho: "data", "estabelecimento", "valor" e "N_de_parcela".`,
		`5. Ignore os lançamentos após "` + ForecastMarker + `".`,
		"",
		lineShapeExample,
	}
	return strings.Join(parts, "\n") + "\n\nAqui está o texto do extrato bancário para ser analisado:\n\nTexto:\n" + text
}
