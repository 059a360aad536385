package bot

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
	"github.com/susu3304/potbot/internal/commands"
	"github.com/susu3304/potbot/internal/config"
	"github.com/susu3304/potbot/internal/db"
	"github.com/susu3304/potbot/internal/game"
)

type Bot struct {
	session  *discordgo.Session
	game     *commands.Game
	reminder *reminderWorker
}

func New(cfg *config.Config, database *db.DB, svc *game.Service) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	bot := &Bot{
		session:  session,
		game:     commands.NewGame(svc, database, cfg.AutoBalance, cfg.ReminderIntervalMinutes, cfg.WebUIBaseURL),
		reminder: newReminderWorker(session, database, svc.Currency()),
	}

	// Register event handlers
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onGuildCreate)
	session.AddHandler(bot.onInteractionCreate)

	session.Identify.Intents = discordgo.IntentsGuilds

	return bot, nil
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	b.reminder.start()
	log.Println("Discord bot is running")
	return nil
}

func (b *Bot) Stop() error {
	b.reminder.stop()
	return b.session.Close()
}
