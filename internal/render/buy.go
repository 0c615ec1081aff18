package render

import (
	"html"
	"strconv"
	"strings"

	"ton-buy-tracker/internal/domain"
)

const (
	dotsPerRow = 12
	separator  = "──────────────"
)

// ChannelLinkOrder is the order links appear in a channel post.
var ChannelLinkOrder = []string{"Chart", "STONfi", "DeDust", "Trade"}

func symbolOf(ev *domain.BuyEvent) string {
	if ev.TokenSymbol == nil || *ev.TokenSymbol == "" {
		return "TOKEN"
	}
	return html.EscapeString(*ev.TokenSymbol)
}

func tonLine(prefix string, ev *domain.BuyEvent) string {
	if ev.TONAmount == nil {
		return prefix + "TON buy"
	}
	line := prefix + Fixed(*ev.TONAmount, 2) + " TON"
	if ev.USDAmount != nil {
		line += " ($" + Fixed(*ev.USDAmount, 2) + ")"
	}
	return line
}

func jettonLine(prefix, sym string, ev *domain.BuyEvent) string {
	if ev.JettonAmount == nil {
		return prefix + sym
	}
	return prefix + Fixed(*ev.JettonAmount, 2) + " " + sym
}

func buyerLine(ev *domain.BuyEvent) string {
	label := ShortAddress(ev.BuyerAddress, 3) + " | Txn"
	if url := TxURL(ev.TxHash); url != "" {
		return anchor(url, label)
	}
	return html.EscapeString(label)
}

// GroupPost renders the buy notification sent to the configured group.
func GroupPost(ev *domain.BuyEvent, bookURL string) string {
	sym := symbolOf(ev)
	lines := []string{
		sym + " Buy!",
		"",
		Grid("🔻", StrengthCount(ev.USDAmount), dotsPerRow),
		"",
		tonLine("🔺 ", ev),
		jettonLine("💰 ", sym, ev),
		"",
		buyerLine(ev),
	}
	if ev.Holders != nil {
		lines = append(lines, "👥 Holders: "+Count(*ev.Holders))
	}
	if ev.PriceUSD != nil {
		lines = append(lines, "💵 Price: $"+Price(*ev.PriceUSD))
	}
	if ev.LiquidityUSD != nil {
		lines = append(lines, "💧 Liquidity: $"+Fixed(*ev.LiquidityUSD, 0))
	}
	if ev.MCapUSD != nil {
		lines = append(lines, "🏦 MCap: $"+Fixed(*ev.MCapUSD, 0))
	}
	if ev.TONPriceUSD != nil {
		lines = append(lines, "🟦 TON Price: $"+Fixed(*ev.TONPriceUSD, 4))
	}
	if bookURL != "" {
		lines = append(lines, separator, anchor(bookURL, "You can book an ad here"))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// ChannelPost renders the cross-post for the shared trending channel.
func ChannelPost(ev *domain.BuyEvent, title string) string {
	sym := symbolOf(ev)
	rank := ""
	if ev.Rank != nil && *ev.Rank > 0 {
		rank = "[" + strconv.Itoa(*ev.Rank) + "] "
	}

	var lines []string
	if title != "" {
		lines = append(lines, html.EscapeString(title))
	}
	lines = append(lines,
		rank+"$"+sym+" Buy!",
		"",
		Grid("🟢", StrengthCount(ev.USDAmount), dotsPerRow),
		"",
		tonLine("💎 ", ev),
		jettonLine("🪙 ", sym, ev),
		"",
		buyerLine(ev),
	)
	if ev.Holders != nil {
		lines = append(lines, "👥 Holders: "+Count(*ev.Holders))
	}
	if ev.LiquidityUSD != nil {
		lines = append(lines, "💧 Liquidity: $"+Fixed(*ev.LiquidityUSD, 0))
	}
	if ev.MCapUSD != nil {
		lines = append(lines, "🏦 MCap: $"+Fixed(*ev.MCapUSD, 0))
	}

	var links []string
	for _, label := range ChannelLinkOrder {
		if url, ok := ev.Link(label); ok {
			links = append(links, anchor(url, label))
		}
	}
	if len(links) > 0 {
		lines = append(lines, "", strings.Join(links, " | "))
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
