package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/AmanSingh544/ChatAppResponsive/internal/codec"
	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
	"github.com/AmanSingh544/ChatAppResponsive/internal/session"
	"github.com/AmanSingh544/ChatAppResponsive/internal/transport"
)

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <roomId>",
		Short: "Join a room, print its messages and send stdin lines",
		Args:  cobra.ExactArgs(1),
		RunE:  runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	roomID := args[0]
	ctx, stop := cmdContext(cmd)
	defer stop()

	me, err := api.GetUser(ctx, "me")
	if err != nil {
		return fmt.Errorf("who am i: %w", err)
	}
	room, err := api.JoinRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("join %s: %w", roomID, err)
	}

	cd, err := codec.ByName(cfg.Client.Codec)
	if err != nil {
		return err
	}
	logger := log.With().Str("component", "chatctl").Logger()
	tr := transport.New(&transport.WSDialer{ServerURL: cfg.Client.ServerURL, Codec: cd}, transport.Options{
		ReconnectAttempts: cfg.Client.ReconnectAttempts,
		ReconnectDelay:    cfg.Client.ReconnectDelay,
		ConnectTimeout:    cfg.Client.ConnectTimeout,
		AckTimeout:        cfg.Client.AckTimeout,
		Codec:             cd,
		Logger:            logger,
	})
	sess := session.New(tr, session.Options{
		UserID:       me.ID,
		UserName:     me.Name,
		TypingExpiry: cfg.Client.TypingExpiry,
		Logger:       logger,
	})
	defer sess.Close()

	names := make(map[string]string, len(room.Members))
	for _, m := range room.Members {
		names[m.ID] = m.Name
	}

	if err := sess.SwitchRoom(room.ID); err != nil {
		return err
	}
	if err := sess.Connect(api.Token); err != nil {
		return err
	}

	done := make(chan error, 1)
	joined := make(chan struct{})
	go func() { done <- printEvents(sess, names, joined) }()
	go readInput(ctx.Done(), joined, sess, room.ID)

	fmt.Printf("# %s (%s), type to chat, Ctrl-C to quit\n", room.Name, room.ID)
	select {
	case <-ctx.Done():
		return nil
	case err := <-done:
		return err
	}
}

// printEvents renders session events until the connection is given up.
// joined is closed on the first join confirmation.
func printEvents(sess *session.Session, names map[string]string, joined chan<- struct{}) error {
	var once sync.Once
	for ev := range sess.Events() {
		switch ev.Kind {
		case session.Joined:
			once.Do(func() { close(joined) })
		case session.StateChanged:
			fmt.Printf("* %s\n", ev.State)
			if ev.Terminal {
				if ev.Err != nil {
					return ev.Err
				}
				return errors.New("disconnected")
			}
		case session.ConnectFailed:
			fmt.Printf("* connect failed: %v\n", ev.Err)
		case session.JoinFailed:
			return ev.Err
		case session.HistoryReplaced:
			for _, m := range ev.History {
				printMessage(m)
			}
		case session.MessageAppended:
			if !ev.Message.IsOwn {
				printMessage(ev.Message)
			}
		case session.MessageUpdated:
			if ev.Message.Status == models.StatusFailed {
				fmt.Printf("! not delivered: %s\n", ev.Message.Content)
			}
		case session.TypingChanged:
			if ev.Typing != "" {
				name := names[ev.Typing]
				if name == "" {
					name = ev.Typing
				}
				fmt.Printf("* %s is typing...\n", name)
			}
		}
	}
	return nil
}

// readInput sends stdin lines once the room is joined.
func readInput(stop, joined <-chan struct{}, sess *session.Session, roomID string) {
	select {
	case <-stop:
		return
	case <-joined:
	}
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		select {
		case <-stop:
			return
		default:
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		sess.NotifyTyping(roomID, true)
		_, err := sess.Send(context.Background(), roomID, line)
		sess.NotifyTyping(roomID, false)
		switch {
		case errors.Is(err, session.ErrNotInRoom):
			fmt.Printf("! not sent, waiting to rejoin %s: %s\n", roomID, line)
		case err != nil:
			log.Debug().Err(err).Msg("send failed")
		}
	}
}

func printMessage(m models.Message) {
	who := m.SenderName
	if m.IsOwn {
		who = "me"
	}
	fmt.Printf("[%s] %s: %s\n", m.Timestamp.Local().Format("15:04"), who, m.Content)
}
