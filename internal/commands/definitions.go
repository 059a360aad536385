package commands

import "github.com/bwmarrin/discordgo"

func GetCommands() []*discordgo.ApplicationCommand {
	amount := func(desc string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "amount",
			Description: desc,
			Required:    true,
		}
	}
	user := func(desc string, required bool) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "user",
			Description: desc,
			Required:    required,
		}
	}
	note := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "note",
		Description: "メモ",
	}
	txID := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "id",
		Description: "記録ID (/game log で確認)",
		Required:    true,
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:         "game",
			Description:  "ポーカーの収支を記録して精算します",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "start", Description: "このチャンネルでゲームを開始します"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "stop", Description: "精算せずにゲームを終了します"},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "join",
					Description: "参加者を登録します",
					Options:     []*discordgo.ApplicationCommandOption{user("参加させるユーザー (省略時は自分)", false)},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "buyin",
					Description: "バイインを記録します",
					Options:     []*discordgo.ApplicationCommandOption{amount("バイイン額"), user("対象 (省略時は自分)", false), note},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "cashout",
					Description: "キャッシュアウトを記録します",
					Options:     []*discordgo.ApplicationCommandOption{amount("キャッシュアウト額"), user("対象 (省略時は自分)", false), note},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "adjust",
					Description: "残高を指定した値に修正します",
					Options:     []*discordgo.ApplicationCommandOption{amount("修正後の残高 (マイナス可)"), user("対象 (省略時は自分)", false), note},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "edit",
					Description: "記録の金額を修正します",
					Options:     []*discordgo.ApplicationCommandOption{txID, amount("新しい金額")},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "delete",
					Description: "記録を削除します",
					Options:     []*discordgo.ApplicationCommandOption{txID},
				},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "status", Description: "現在の収支を表示します"},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "log", Description: "記録の一覧を表示します"},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "settle",
					Description: "精算してゲームを終了します",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "auto_balance",
							Description: "合計が0でないとき自動調整する",
						},
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "policy",
							Description: "自動調整の対象",
							Choices: []*discordgo.ApplicationCommandOptionChoice{
								{Name: "残高がある人のみ", Value: "non-zero"},
								{Name: "全員", Value: "all"},
							},
						},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "done",
					Description: "支払いを記録します",
					Options: []*discordgo.ApplicationCommandOption{
						user("支払った相手", true),
						{
							Type:        discordgo.ApplicationCommandOptionString,
							Name:        "amount",
							Description: "支払額 (省略時は全額)",
						},
					},
				},
				{Type: discordgo.ApplicationCommandOptionSubCommand, Name: "tasks", Description: "未払いの支払タスクを表示します"},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "remind",
					Description: "未払いのリマインドを設定・確認します",
					Options: []*discordgo.ApplicationCommandOption{
						{
							Type:        discordgo.ApplicationCommandOptionBoolean,
							Name:        "enabled",
							Description: "リマインドを有効にする (省略時は現在の設定を表示)",
						},
						{
							Type:        discordgo.ApplicationCommandOptionInteger,
							Name:        "interval",
							Description: "間隔 (分)",
							MinValue:    floatPtr(1),
						},
					},
				},
			},
		},
	}
}

func boolPtr(b bool) *bool {
	return &b
}

func floatPtr(f float64) *float64 {
	return &f
}
