package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/Mr-Leon909/tsutsuji-app/config"
	database "github.com/Mr-Leon909/tsutsuji-app/db"
	models "github.com/Mr-Leon909/tsutsuji-app/model"
	"github.com/Mr-Leon909/tsutsuji-app/repository"
)

type seedUser struct {
	username  string
	birthDate string
	avatarURL string
}

var seedUsers = []seedUser{
	{"ひびき", "1996-11-13", "https://images.unsplash.com/photo-1494790108377-be9c29b29330?w=150"},
	{"かなで", "1998-04-01", "https://images.unsplash.com/photo-1500648767791-00dcc994a43e?w=150"},
	{"そうた", "1995-07-20", ""},
}

var samplePosts = []struct {
	owner    string
	mediaURL string
	isVideo  bool
	caption  string
}{
	{"ひびき", "https://images.unsplash.com/photo-1522383225653-ed111181a951?w=1080", false, "満開のつつじ"},
	{"かなで", "https://images.unsplash.com/photo-1490750967868-88aa4486c946?w=1080", false, "朝の散歩"},
	{"そうた", "https://www.w3schools.com/html/mov_bbb.mp4", true, ""},
}

func newSeedCmd() *cobra.Command {
	var withPosts bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Insert the seed users and optional sample posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbCfg, err := config.LoadDatabaseConfig("")
			if err != nil {
				return fmt.Errorf("failed to load database config: %w", err)
			}
			dbConn, err := database.NewConnection(*dbCfg)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer dbConn.Close()

			return seed(cmd.Context(), repository.NewUserRepository(dbConn.DB), repository.NewPostRepository(dbConn.DB), withPosts)
		},
	}
	cmd.Flags().BoolVar(&withPosts, "posts", false, "also insert sample posts")
	return cmd
}

func seed(ctx context.Context, users repository.UserRepository, posts repository.PostRepository, withPosts bool) error {
	ids := make(map[string]models.User)
	for _, su := range seedUsers {
		u := models.User{Username: su.username}
		if su.avatarURL != "" {
			avatar := su.avatarURL
			u.AvatarURL = &avatar
		}
		if err := users.Create(ctx, &u, su.birthDate); err != nil {
			return err
		}
		// the row may predate this run, so read back the stored id
		stored, err := users.FindByCredentials(ctx, su.username, su.birthDate)
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("User %s exists with a different birth date, skipping", su.username)
			continue
		}
		if err != nil {
			return err
		}
		ids[su.username] = *stored
		log.Printf("Seeded user %s (%s)", stored.Username, stored.ID)
	}

	if !withPosts {
		return nil
	}
	for _, sp := range samplePosts {
		owner, ok := ids[sp.owner]
		if !ok {
			continue
		}
		var caption *string
		if sp.caption != "" {
			c := sp.caption
			caption = &c
		}
		id, err := posts.Create(ctx, models.NewPost{
			UserID:   owner.ID,
			MediaURL: sp.mediaURL,
			IsVideo:  sp.isVideo,
			Caption:  caption,
		})
		if err != nil {
			return err
		}
		log.Printf("Seeded post %s for %s", id, owner.Username)
	}
	return nil
}
