package main

import (
	"context"
	stderrors "errors"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/mroshb/friend_calendar/internal/config"
	"github.com/mroshb/friend_calendar/internal/database"
	"github.com/mroshb/friend_calendar/internal/repositories"
	"github.com/mroshb/friend_calendar/internal/services"
	"github.com/mroshb/friend_calendar/internal/sheets"
	"github.com/mroshb/friend_calendar/pkg/errors"
	"github.com/mroshb/friend_calendar/pkg/logger"
)

func main() {
	file := flag.String("file", "", "path to the .xlsx workbook")
	username := flag.String("user", "", "username that will own the events")
	calendarID := flag.Uint("calendar", 0, "optional calendar id to import into")
	dryRun := flag.Bool("dry-run", false, "print the parsed rows without writing")
	flag.Parse()

	if *file == "" || (*username == "" && !*dryRun) {
		flag.Usage()
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}
	logger.Init()
	defer logger.Sync()

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	rows, err := sheets.ReadEvents(f)
	if err != nil {
		log.Fatal(err)
	}

	if *dryRun {
		for _, row := range rows {
			fmt.Printf("Row %d: %+v\n", row.Line, row)
		}
		fmt.Printf("Parsed %d rows.\n", len(rows))
		return
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal("failed to connect database: ", err)
	}

	ctx := context.Background()
	userRepo := repositories.NewUserRepository(db)
	user, err := userRepo.GetUserByUsername(ctx, *username)
	if err != nil {
		log.Fatal("failed to find user: ", err)
	}

	svc := services.NewEventService(
		repositories.NewEventRepository(db),
		repositories.NewCalendarRepository(db),
		repositories.NewFriendRepository(db),
		services.SettingsFromConfig(cfg),
	)

	var target *uint
	if *calendarID != 0 {
		id := *calendarID
		target = &id
	}

	imported := 0
	for _, row := range rows {
		in := services.CreateEventInput{
			Title:      row.Title,
			Date:       row.Date,
			Time:       row.Time,
			EndTime:    row.EndTime,
			AllDay:     row.AllDay,
			Details:    row.Details,
			Location:   row.Location,
			CalendarID: target,
		}
		if _, err := svc.Create(ctx, user.ID, in); err != nil {
			var appErr *errors.AppError
			if stderrors.As(err, &appErr) && len(appErr.Fields) > 0 {
				fmt.Printf("Error creating event in row %d: %v %v\n", row.Line, err, appErr.Fields)
			} else {
				fmt.Printf("Error creating event in row %d: %v\n", row.Line, err)
			}
			if errors.Is(err, errors.ErrCodeForbidden) || errors.Is(err, errors.ErrCodeNotFound) {
				os.Exit(1)
			}
			continue
		}
		imported++
	}

	fmt.Printf("Successfully imported %d of %d events.\n", imported, len(rows))
}
