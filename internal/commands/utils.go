package commands

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/susu3304/potbot/internal/money"
)

func ParseGuildID(guildID string) int64 {
	id, err := strconv.ParseInt(guildID, 10, 64)
	if err != nil {
		log.Printf("Failed to parse guild ID '%s': %v", guildID, err)
		return 0
	}
	return id
}

// interactionUserID is the invoking user, whether the command came from a guild or a DM.
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func findOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) *discordgo.ApplicationCommandInteractionDataOption {
	for _, o := range opts {
		if o.Name == name {
			return o
		}
	}
	return nil
}

func getStringOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) *string {
	if o := findOption(opts, name); o != nil {
		v := o.StringValue()
		return &v
	}
	return nil
}

func getIntOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) *int64 {
	if o := findOption(opts, name); o != nil {
		v := o.IntValue()
		return &v
	}
	return nil
}

func getBoolOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) *bool {
	if o := findOption(opts, name); o != nil {
		v := o.BoolValue()
		return &v
	}
	return nil
}

// optionUserID reads a user option as its raw id, falling back to def.
func optionUserID(opts []*discordgo.ApplicationCommandInteractionDataOption, name, def string) string {
	if o := findOption(opts, name); o != nil {
		if id, ok := o.Value.(string); ok && id != "" {
			return id
		}
	}
	return def
}

// parseAmount reads a typed amount. The second result is a reply for the user when
// the text is not a usable number.
func parseAmount(raw string) (money.Amount, string) {
	in := money.ParseInput(raw)
	switch in.Kind {
	case money.InputEmpty, money.InputNegativeSign:
		return money.Zero, "金額を入力してください"
	case money.InputMalformed:
		return money.Zero, fmt.Sprintf("金額を認識できませんでした: %q", strings.TrimSpace(raw))
	}
	return in.Amount(), ""
}

func parseAmountOption(opts []*discordgo.ApplicationCommandInteractionDataOption, name string) (money.Amount, string) {
	v := getStringOption(opts, name)
	if v == nil {
		return money.Zero, "金額の指定が必要です"
	}
	return parseAmount(*v)
}

func parseIDOption(opts []*discordgo.ApplicationCommandInteractionDataOption) (uuid.UUID, string) {
	v := getStringOption(opts, "id")
	if v == nil {
		return uuid.Nil, "記録IDの指定が必要です"
	}
	id, err := uuid.Parse(strings.Trim(strings.TrimSpace(*v), "`"))
	if err != nil {
		return uuid.Nil, "記録IDを認識できませんでした"
	}
	return id, ""
}
