package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/AmanSingh544/ChatAppResponsive/internal/config"
	"github.com/AmanSingh544/ChatAppResponsive/internal/models"
	"github.com/AmanSingh544/ChatAppResponsive/internal/roomapi"
	"github.com/AmanSingh544/ChatAppResponsive/internal/utils"
)

var rootCmd = &cobra.Command{
	Use:               "chatctl",
	Short:             "Command line client for the room chat server",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var (
	flagConfig string
	flagServer string
	flagToken  string

	cfg config.Config
	api *roomapi.Client
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "optional YAML config file")
	flags.StringVar(&flagServer, "server", "", "server base URL (overrides CHAT_SERVER_URL)")
	flags.StringVar(&flagToken, "token", "", "access token (overrides CHAT_TOKEN)")

	rootCmd.AddCommand(loginCmd(), signupCmd(), usersCmd(), roomsCmd(), createCmd(), addCmd(), chatCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("execute chatctl command")
	}
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagServer != "" {
		cfg.Client.ServerURL = flagServer
	}
	if flagToken != "" {
		cfg.Client.Token = flagToken
	}
	utils.SetupLogger(cfg.Log.Level, true)

	api = roomapi.New(cfg.Client.ServerURL)
	api.Token = cfg.Client.Token
	return nil
}

func cmdContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	return ctx, stop
}

func loginCmd() *cobra.Command {
	var name, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and print an access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			res, err := api.Login(ctx, name, password)
			if err != nil {
				return err
			}
			fmt.Println(res.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "user name")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func signupCmd() *cobra.Command {
	var name, password string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and print its access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()
			res, err := api.Register(ctx, name, password)
			if err != nil {
				return err
			}
			fmt.Println(res.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "user name")
	cmd.Flags().StringVar(&password, "password", "", "password")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func usersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List the other users and their presence",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := api.GetAllUsers(cmd.Context())
			if err != nil {
				return err
			}
			for _, u := range users {
				fmt.Printf("%s\t%s\t%s\n", u.ID, u.Name, u.Status)
			}
			return nil
		},
	}
}

func roomsCmd() *cobra.Command {
	var available bool
	cmd := &cobra.Command{
		Use:   "rooms",
		Short: "List your rooms, or the public rooms you can join",
		RunE: func(cmd *cobra.Command, args []string) error {
			list := api.GetRooms
			if available {
				list = api.GetAvailableRooms
			}
			rooms, err := list(cmd.Context())
			if err != nil {
				return err
			}
			for _, r := range rooms {
				printRoom(r)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&available, "available", false, "list joinable public rooms")
	return cmd
}

func createCmd() *cobra.Command {
	var data models.RoomCreationData
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a room",
		RunE: func(cmd *cobra.Command, args []string) error {
			room, err := api.CreateRoom(cmd.Context(), data)
			if err != nil {
				return err
			}
			printRoom(room)
			return nil
		},
	}
	cmd.Flags().StringVar(&data.Name, "name", "", "room name")
	cmd.Flags().StringVar(&data.Purpose, "purpose", "chat", "one of chat, gossip, education, study, work")
	cmd.Flags().StringVar(&data.Description, "description", "", "room description")
	cmd.Flags().BoolVar(&data.IsPrivate, "private", false, "only members can join")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func addCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <roomId> <userId>...",
		Short: "Add users to a room you are a member of",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			room, err := api.AddMembers(cmd.Context(), models.RoomMembers{RoomID: args[0], Members: args[1:]})
			if err != nil {
				return err
			}
			printRoom(room)
			return nil
		},
	}
}

func printRoom(r models.Room) {
	visibility := "public"
	if r.IsPrivate {
		visibility = "private"
	}
	fmt.Printf("%s\t%s\t%s\t%s\t%d members\n", r.ID, r.Name, r.Purpose, visibility, len(r.Members))
}
