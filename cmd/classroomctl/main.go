// Command classroomctl prints the roster and exam leaderboards straight from the
// configured store, without going through the HTTP API.
//
//	classroomctl leaderboard -exam exam-1
//	classroomctl students -class 2APIC-3
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/catalog"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/ranking"
	"github.com/noah-isme/classroom-api/internal/repository"
	"github.com/noah-isme/classroom-api/internal/service"
	"github.com/noah-isme/classroom-api/pkg/config"
	"github.com/noah-isme/classroom-api/pkg/kvstore"
)

func main() {
	if len(os.Args) < 2 {
		usage(os.Stderr)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		color.Red("failed to load config: %v", err)
		os.Exit(1)
	}

	if err := checkDriver(cfg.Store.Driver); err != nil {
		color.Red("%v", err)
		os.Exit(2)
	}

	ctx := context.Background()
	store, err := kvstore.Open(ctx, cfg, zap.NewNop())
	if err != nil {
		color.Red("failed to open store: %v", err)
		os.Exit(1)
	}
	defer store.Close() //nolint:errcheck

	students := repository.NewStudentRepository(store, cfg.Store.KeyPrefix)

	switch os.Args[1] {
	case "leaderboard":
		fs := flag.NewFlagSet("leaderboard", flag.ExitOnError)
		examID := fs.String("exam", "", "exam id")
		_ = fs.Parse(os.Args[2:])
		if *examID == "" {
			color.Red("-exam is required")
			os.Exit(2)
		}

		cat, err := catalog.Load(cfg.Catalog.Path)
		if err != nil {
			cat = catalog.Empty()
		}
		results := repository.NewResultRepository(store, cfg.Store.KeyPrefix)
		svc := service.NewRankingService(ranking.NewEngine(cfg.Ranking.TimeCeiling), students, results, cat, nil, nil, zap.NewNop())
		board, err := svc.Compute(ctx, *examID)
		if err != nil {
			color.Red("failed to compute leaderboard: %v", err)
			os.Exit(1)
		}
		printLeaderboard(os.Stdout, board)
	case "students":
		fs := flag.NewFlagSet("students", flag.ExitOnError)
		class := fs.String("class", "", "only list this class")
		search := fs.String("search", "", "name filter")
		_ = fs.Parse(os.Args[2:])

		list, err := students.List(ctx, models.StudentFilter{Class: *class, Search: *search})
		if err != nil {
			color.Red("failed to list students: %v", err)
			os.Exit(1)
		}
		printStudents(os.Stdout, list)
	default:
		usage(os.Stderr)
		os.Exit(2)
	}
}

// checkDriver rejects the memory driver: a fresh in-process store is always empty here.
func checkDriver(driver string) error {
	if driver == "" || driver == config.StoreDriverMemory {
		return fmt.Errorf("STORE_DRIVER=%s holds no data outside the API process; set STORE_DRIVER to %s or %s",
			config.StoreDriverMemory, config.StoreDriverRedis, config.StoreDriverPostgres)
	}
	return nil
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: classroomctl <leaderboard -exam ID | students [-class C] [-search S]>")
}

func printLeaderboard(w io.Writer, board models.Leaderboard) {
	title := board.ExamID
	if board.ExamTitle != "" {
		title = board.ExamTitle + " (" + board.ExamID + ")"
	}
	fmt.Fprintln(w, color.YellowString("\nClassement - %s", title))

	if len(board.Entries) == 0 {
		fmt.Fprintln(w, color.CyanString("Aucun résultat"))
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Rang", "Élève", "Note", "Durée (s)", "Tentatives", "Score pondéré"})
	for _, e := range board.Entries {
		table.Append([]string{
			strconv.Itoa(e.Rank),
			e.Name,
			strconv.FormatFloat(e.Score, 'f', 2, 64),
			strconv.FormatFloat(e.Duration, 'f', 0, 64),
			strconv.Itoa(e.Attempts),
			strconv.FormatFloat(e.WeightedScore, 'f', 2, 64),
		})
	}
	table.Render()
}

func printStudents(w io.Writer, students []models.Student) {
	fmt.Fprintln(w, color.YellowString("\nÉlèves (%d)", len(students)))

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Nom", "Classe", "N°", "Premium"})
	for _, s := range students {
		premium := ""
		if s.Premium {
			premium = "oui"
		}
		table.Append([]string{s.ID, s.FullName(), s.Class, strconv.Itoa(s.Number), premium})
	}
	table.Render()
}
