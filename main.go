package main

import (
	"bufio"
	"context"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/mux"

	"github.com/msalmeida123/sistema-clube-sub003/internal/database"
	"github.com/msalmeida123/sistema-clube-sub003/internal/events"
	"github.com/msalmeida123/sistema-clube-sub003/internal/handlers"
	"github.com/msalmeida123/sistema-clube-sub003/internal/services"
)

// loadEnvFile loads environment variables from a file
func loadEnvFile(filename string) {
	file, err := os.Open(filename)
	if err != nil {
		return // File doesn't exist, skip silently
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			if os.Getenv(key) == "" {
				os.Setenv(key, value)
			}
		}
	}

	log.Printf("DEBUG: Loaded environment from %s", filename)
}

// CORS middleware
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {

		// Set CORS headers
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, x-api-key, x-webhook-secret")
		w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

		// Handle preflight requests
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	log.Println("DEBUG: Starting WhatsApp gateway server...")

	// Load environment variables from .env file
	loadEnvFile(".env")
	loadEnvFile("env.production")
	loadEnvFile("env.local")

	// Initialize database
	log.Println("DEBUG: Initializing database...")
	database.InitDatabase()
	db := database.GetDB()
	if err := database.SeedAdminInicial(db); err != nil {
		log.Fatal("Failed to seed initial admin:", err)
	}
	log.Println("DEBUG: Database initialized successfully")

	// Shared change feed between ingestion and notifications
	bus := events.NewBus()

	// Services
	authService := services.NewAuthService(db)
	permissionService := services.NewPermissionService(db)
	ledgerService := services.NewLedgerService(db, bus)
	transferService := services.NewTransferService(db, permissionService, bus)
	syncService := services.NewContactSyncService(db)
	notificationService := services.NewNotificationService(db, bus)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go notificationService.Run(ctx)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService, permissionService)
	webhookHandler := handlers.NewWebhookHandler(db, ledgerService)
	messageHandler := handlers.NewMessageHandler(db, ledgerService, permissionService)
	transferHandler := handlers.NewTransferHandler(transferService, permissionService)
	syncHandler := handlers.NewSyncHandler(db, syncService, ledgerService, permissionService)
	notificationHandler := handlers.NewNotificationHandler(notificationService, permissionService)

	r := mux.NewRouter()
	auth := handlers.AuthMiddleware(authService)

	// Auth endpoints
	r.HandleFunc("/api/auth/login", authHandler.HandleLogin).Methods("POST")
	r.Handle("/api/auth/profile", auth(http.HandlerFunc(authHandler.HandleProfile))).Methods("GET")

	// Webhook endpoints (provider-authenticated, no JWT)
	r.HandleFunc("/api/wasender/webhook", webhookHandler.HandleWaSenderWebhook).Methods("POST")
	r.HandleFunc("/api/wasender/webhook", webhookHandler.HandleWaSenderChallenge).Methods("GET")
	r.HandleFunc("/api/meta/webhook", webhookHandler.HandleMetaWebhook).Methods("POST")
	r.HandleFunc("/api/meta/webhook", webhookHandler.HandleMetaChallenge).Methods("GET")

	// Messaging endpoints
	r.Handle("/api/whatsapp/send", auth(http.HandlerFunc(messageHandler.HandleSend))).Methods("POST")
	r.Handle("/api/whatsapp/status", auth(http.HandlerFunc(messageHandler.HandleStatus))).Methods("GET")
	r.Handle("/api/whatsapp/connect", auth(http.HandlerFunc(messageHandler.HandleConnect))).Methods("POST")
	r.Handle("/api/whatsapp/disconnect", auth(http.HandlerFunc(messageHandler.HandleDisconnect))).Methods("POST")
	r.Handle("/api/whatsapp/providers", auth(http.HandlerFunc(messageHandler.HandleProviders))).Methods("GET")

	// Sector routing endpoints
	r.Handle("/api/wasender/transferir", auth(http.HandlerFunc(transferHandler.HandleTransferir))).Methods("POST")
	r.Handle("/api/wasender/transferir", auth(http.HandlerFunc(transferHandler.HandleHistorico))).Methods("GET")
	r.Handle("/api/wasender/setores", auth(http.HandlerFunc(transferHandler.HandleListarSetores))).Methods("GET")
	r.Handle("/api/wasender/setores", auth(http.HandlerFunc(transferHandler.HandleCriarSetor))).Methods("POST")

	// Contact sync endpoints (POST authenticates with the provider API key)
	r.HandleFunc("/api/wasender/sync-contacts", syncHandler.HandleSyncContacts).Methods("POST")
	r.Handle("/api/wasender/sync-contacts", auth(http.HandlerFunc(syncHandler.HandleSyncStats))).Methods("GET")
	r.Handle("/api/wasender/contacts", auth(http.HandlerFunc(syncHandler.HandleListContacts))).Methods("GET")
	r.Handle("/api/wasender/contacts", auth(http.HandlerFunc(syncHandler.HandleImportContacts))).Methods("POST")
	r.Handle("/api/conversas/arquivar", auth(http.HandlerFunc(syncHandler.HandleArquivar))).Methods("POST")

	// Notification endpoints
	r.Handle("/api/notificacoes/nao-lidas", auth(http.HandlerFunc(notificationHandler.HandleNaoLidas))).Methods("GET")
	r.Handle("/api/notificacoes/ws", auth(http.HandlerFunc(notificationHandler.HandleWebsocket))).Methods("GET")

	// Health check endpoint
	r.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","message":"Backend is running"}`))
	}).Methods("GET")

	// Apply CORS middleware
	handler := corsMiddleware(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "9090"
	}

	log.Println("🚀 WhatsApp Gateway Backend started on :" + port)
	log.Println("📡 Available endpoints:")
	log.Println("   🔐 AUTH:")
	log.Println("      POST /api/auth/login            - User login")
	log.Println("      GET  /api/auth/profile          - Get user profile")
	log.Println("   🔗 WEBHOOK:")
	log.Println("      POST /api/wasender/webhook      - WaSender webhook")
	log.Println("      POST /api/meta/webhook          - Meta Cloud API webhook")
	log.Println("   📱 WHATSAPP:")
	log.Println("      POST /api/whatsapp/send         - Send message")
	log.Println("      GET  /api/whatsapp/status       - Session status")
	log.Println("      POST /api/whatsapp/connect      - Connect session (QR)")
	log.Println("      POST /api/whatsapp/disconnect   - Disconnect session")
	log.Println("      GET  /api/whatsapp/providers    - List providers")
	log.Println("   🔀 SETORES:")
	log.Println("      POST /api/wasender/transferir   - Transfer conversation")
	log.Println("      GET  /api/wasender/transferir   - Transfer history")
	log.Println("      GET  /api/wasender/setores      - List sectors")
	log.Println("   🔄 SYNC:")
	log.Println("      POST /api/wasender/sync-contacts - Run contact sync")
	log.Println("      GET  /api/wasender/sync-contacts - Sync statistics")
	log.Println("      POST /api/wasender/contacts      - Import contacts")
	log.Println("   🔔 NOTIFICAÇÕES:")
	log.Println("      GET  /api/notificacoes/nao-lidas - Unread total")
	log.Println("      GET  /api/notificacoes/ws        - Live unread stream")

	log.Fatal(http.ListenAndServe(":"+port, handler))
}
