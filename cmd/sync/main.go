package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/xavierca1/ligue-crm/internal/config"
	"github.com/xavierca1/ligue-crm/internal/infra/database"
	"github.com/xavierca1/ligue-crm/internal/infra/integration/manychat"
	"github.com/xavierca1/ligue-crm/internal/usecase"
	"github.com/xavierca1/ligue-crm/pkg/logger"
)

func main() {
	ids := flag.String("ids", "", "subscriber ids separados por vírgula (vazio = todos os leads vinculados)")
	linkByPhone := flag.Bool("link-by-phone", false, "vincula leads sem subscriber buscando pelo telefone")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Aviso: arquivo .env não encontrado, usando variáveis de ambiente do sistema")
	}
	cfg := config.Load()

	if cfg.ManyChatToken == "" {
		log.Fatal("❌ MANYCHAT_API_TOKEN deve estar configurado no .env")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Erro ao conectar no Postgres: %v", err)
	}
	defer db.Close()

	zl, err := logger.New(logger.Options{Level: cfg.LogLevel, Development: cfg.Development(), Service: "ligue-crm-sync"})
	if err != nil {
		zl = logger.Global()
	}
	defer zl.Sync()
	leadRepo := database.NewLeadRepository(db)
	pipelineRepo := database.NewPipelineRepository(db)
	reconciler := usecase.NewConversationReconciler(database.NewConversationRepository(db), database.NewMessageRepository(db), zl)
	syncer := usecase.NewLeadSyncer(leadRepo, pipelineRepo, reconciler, zl)
	client := manychat.NewClient(cfg.ManyChatToken, cfg.ManyChatBaseURL, cfg.ManyChatTimeout, zl)
	uc := usecase.NewSyncSubscribersUseCase(leadRepo, client, syncer, cfg.SyncDelay, zl)

	input := usecase.SyncInput{LinkByPhone: *linkByPhone}
	for _, id := range strings.Split(*ids, ",") {
		if id = strings.TrimSpace(id); id != "" {
			input.SubscriberIDs = append(input.SubscriberIDs, id)
		}
	}

	fmt.Println("🔄 Sincronizando subscribers do ManyChat...")
	report, err := uc.Execute(ctx, input)
	if err != nil {
		log.Fatalf("Erro na sincronização: %v", err)
	}

	fmt.Printf("📋 Resultado:\n")
	fmt.Printf("   Processados: %d\n", report.Processed)
	fmt.Printf("   Criados: %d\n", report.Created)
	fmt.Printf("   Atualizados: %d\n", report.Updated)
	fmt.Printf("   Vinculados: %d\n", report.Linked)
	fmt.Printf("   Duração: %s\n", report.Duration)

	if len(report.Errors) > 0 {
		fmt.Printf("\n⚠️  %d erro(s):\n", len(report.Errors))
		for _, e := range report.Errors {
			fmt.Printf("   %s: %s\n", e.Ref, e.Error)
		}
		os.Exit(1)
	}
	fmt.Println("\n✅ Sincronização concluída")
}
