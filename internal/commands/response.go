package commands

import (
	"log"
	"strings"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// MessageLimit is Discord's cap on a single message.
const MessageLimit = 2000

func respondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: content},
	})
	if err != nil {
		log.Printf("commands: failed to respond: %v", err)
	}
}

// respondLong answers with the first chunk and posts the rest to the channel.
func respondLong(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	chunks := SplitMessage(content, MessageLimit)
	respondText(s, i, chunks[0])
	for _, c := range chunks[1:] {
		if _, err := s.ChannelMessageSend(i.ChannelID, c); err != nil {
			log.Printf("commands: failed to send follow-up to %s: %v", i.ChannelID, err)
			return
		}
	}
}

// SplitMessage breaks content on line boundaries into chunks of at most limit bytes.
// A single line longer than limit is cut at a rune boundary.
func SplitMessage(content string, limit int) []string {
	var chunks []string
	var buffer strings.Builder
	flush := func() {
		if buffer.Len() > 0 {
			chunks = append(chunks, buffer.String())
			buffer.Reset()
		}
	}

	for _, line := range strings.Split(content, "\n") {
		for len(line) > limit {
			flush()
			cut := limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		if buffer.Len() > 0 && buffer.Len()+len(line)+1 > limit {
			flush()
		}
		if buffer.Len() > 0 {
			buffer.WriteString("\n")
		}
		buffer.WriteString(line)
	}
	flush()

	if len(chunks) == 0 {
		return []string{content}
	}
	return chunks
}
