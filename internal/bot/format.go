package bot

import (
	"fmt"
	"strconv"
	"strings"

	"milebot/internal/model"
	"milebot/internal/msgfmt"
	"milebot/pkg/utils"
)

func parseID(raw string) (int64, error) {
	return utils.ValidateID(raw)
}

func formatCallbackID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// programDisplay turns a program callback suffix into a label:
// "azul_interline" -> "AZUL INTERLINE".
func programDisplay(suffix string) string {
	return strings.ToUpper(strings.ReplaceAll(suffix, "_", " "))
}

// shortAdRef is the human reference printed on posts, the low digits
// are enough to tell ads apart in chat.
func shortAdRef(adID int64) string {
	s := strconv.FormatInt(adID, 10)
	if len(s) <= 7 {
		return s
	}
	return s[len(s)-7:]
}

// sellAdSummary renders the confirm-step recap of a sell draft.
func sellAdSummary(draft *model.SellAdDraft) string {
	total := float64(draft.Quantity) / 1000 * draft.PricePerK
	return fmt.Sprintf(`📄 <b>RESUMO DO ANÚNCIO DE VENDA</b>

Você está vendendo:
✈️ <b>%s milhas %s</b>
💰 <b>R$ %s por mil milhas</b>

💵 <b>Total estimado:</b> R$ %s + taxas

<b>Você confirma?</b>`,
		msgfmt.FormatMiles(draft.Quantity), msgfmt.EscapeHTML(draft.Airline),
		msgfmt.FormatPrice(draft.PricePerK), msgfmt.FormatPrice(total))
}

func buyAdSummary(draft *model.BuyAdDraft) string {
	total := float64(draft.Quantity) / 1000 * draft.PricePerK
	urgency := "mais de sete dias"
	if draft.Urgent {
		urgency = "menos de sete dias"
	}
	return fmt.Sprintf(`📄 <b>RESUMO DO ANÚNCIO DE COMPRA</b>

Você está comprando:
✈️ <b>%s milhas %s</b>
👥 <b>%d passageiro(s)</b>
⏰ <b>Emissão para %s</b>
💰 <b>R$ %s por mil milhas</b>

💵 <b>Total estimado:</b> R$ %s

<b>Você confirma?</b>`,
		msgfmt.FormatMiles(draft.Quantity), msgfmt.EscapeHTML(draft.Airline), draft.Passengers,
		urgency, msgfmt.FormatPrice(draft.PricePerK), msgfmt.FormatPrice(total))
}
