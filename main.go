package main

import (
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/rs/zerolog/log"

	"quotebuilder/ai"
	"quotebuilder/collections"
	"quotebuilder/config"
	"quotebuilder/handlers"
	"quotebuilder/services"
	"quotebuilder/videosdk"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	config.SetupLogger(cfg.LogLevel)
	services.CurrencySymbol = cfg.CurrencySymbol

	app := pocketbase.New()

	summarizer := ai.New(cfg.AIAPIKey, cfg.AIModel, cfg.AIBaseURL)
	rooms := videosdk.New(cfg.VideoSDKAPIKey, cfg.VideoSDKSecret, cfg.VideoSDKBaseURL, cfg.VideoSDKTokenTTL)

	hub := services.NewTranscriptionHub(services.HubOptions{
		OnLines: func(meetingID string, lines []services.TranscriptLine) {
			if err := handlers.AppendTranscriptLines(app, meetingID, lines); err != nil {
				log.Error().Err(err).Str("meeting", meetingID).Int("lines", len(lines)).
					Msg("main: transcript lines could not be stored")
			}
		},
	})

	meetingOpts := handlers.MeetingOptions{
		AppURL:  cfg.AppURL,
		LinkTTL: cfg.MeetingLinkTTL,
	}

	registerCommands(app)

	// Create collections, seed the catalog and repair stored quotes on startup
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		collections.Setup(app)
		if err := collections.Seed(app); err != nil {
			log.Warn().Err(err).Msg("main: seed data failed")
		}
		if err := collections.MigrateQuotes(app); err != nil {
			log.Warn().Err(err).Msg("main: quote migration failed")
		}
		return se.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		se.Router.BindFunc(handlers.ContractorMiddleware())

		// ── Quotes and tasks ─────────────────────────────────────
		se.Router.POST("/quote/v2", handlers.HandleQuoteCreate(app))
		se.Router.GET("/quote/v2/standard-tasks", handlers.HandleStandardTasks())
		se.Router.GET("/quote/v2/tasks/{id}", handlers.HandleQuoteTasks(app))
		se.Router.PUT("/quote/v2/{id}/tasks", handlers.HandleQuoteTasksSave(app))
		se.Router.POST("/quote/v2/{id}/tasks/from-template", handlers.HandleQuoteApplyTemplate(app))
		se.Router.POST("/quote/v2/add/{id}/tasks", handlers.HandleQuoteSubmit(app))
		se.Router.PUT("/quote/v2/{id}/review", handlers.HandleQuoteReview(app))
		se.Router.PUT("/quote/v2/{id}/combined-costs", handlers.HandleQuoteCombinedCosts(app))
		se.Router.PUT("/quote/v2/{id}/payment-schedule", handlers.HandlePaymentSchedule(app))

		// Task materials and notes
		se.Router.POST("/quote/v2/{id}/tasks/{taskId}/materials", handlers.HandleTaskAddMaterial(app))
		se.Router.PATCH("/quote/v2/{id}/tasks/{taskId}/materials/{materialId}", handlers.HandleTaskMaterialQuantity(app))
		se.Router.POST("/quote/v2/{id}/tasks/{taskId}/notes", handlers.HandleTaskAddNote(app, summarizer))

		// Quote export
		se.Router.GET("/quote/v2/{id}/export/excel", handlers.HandleQuoteExportExcel(app))
		se.Router.GET("/quote/v2/{id}/export/pdf", handlers.HandleQuoteExportPDF(app))

		// ── Customers ────────────────────────────────────────────
		se.Router.GET("/quote/v2/customers/by-contractor", handlers.HandleCustomersByContractor(app))
		se.Router.GET("/quote/v2/customers/template", handlers.HandleCustomerTemplate())
		se.Router.POST("/quote/v2/add-customer", handlers.HandleAddCustomer(app))
		se.Router.POST("/quote/v2/upload-customers", handlers.HandleUploadCustomers(app))

		// ── Materials catalog ────────────────────────────────────
		se.Router.GET("/category", handlers.HandleCategories(app))
		se.Router.GET("/sub-category", handlers.HandleSubCategories(app))
		se.Router.GET("/inventory/items", handlers.HandleInventoryItems(app))
		se.Router.GET("/materials/panel", handlers.HandleMaterialsPanel(app))

		// ── Meetings ─────────────────────────────────────────────
		se.Router.POST("/meeting/schedule", handlers.HandleMeetingSchedule(app, meetingOpts))
		se.Router.GET("/meeting/scheduled", handlers.HandleScheduledMeetings(app, meetingOpts))
		se.Router.PUT("/meeting/update-status/{id}", handlers.HandleMeetingUpdateStatus(app, hub, meetingOpts))
		se.Router.POST("/meeting/{id}/join", handlers.HandleMeetingJoin(app, meetingOpts))
		se.Router.POST("/meeting/{id}/leave", handlers.HandleMeetingLeave(app, meetingOpts))
		se.Router.POST("/meeting/{id}/room", handlers.HandleMeetingRoom(app, rooms, meetingOpts))
		se.Router.GET("/meeting/{id}/calendar.ics", handlers.HandleMeetingCalendar(app, meetingOpts))
		se.Router.GET("/meeting/{id}/invite", handlers.HandleMeetingInvite(app, meetingOpts))

		// Live transcription
		se.Router.GET("/meeting/{id}/transcript", handlers.HandleTranscriptGet(app, hub))
		se.Router.POST("/meeting/{id}/transcript", handlers.HandleTranscriptPush(app, hub))
		se.Router.POST("/meeting/{id}/transcript/retry", handlers.HandleTranscriptRetry(app, hub))
		se.Router.POST("/meeting/{id}/summarize", handlers.HandleMeetingSummarize(app, summarizer))

		se.Router.GET("/healthz", func(e *core.RequestEvent) error {
			return e.String(http.StatusOK, "ok")
		})

		return se.Next()
	})

	app.OnTerminate().BindFunc(func(te *core.TerminateEvent) error {
		hub.Close()
		return te.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal().Err(err).Msg("main: app exited")
	}
}
