package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/ryyparr-art/swingthoughts-sub007/internal/domain"
)

var playerPrefixes = []string{
	"Birdie", "Bogey", "Fairway", "Divot", "Wedge", "Draw", "Fade", "Scratch", "Links", "Caddie",
	"Mulligan", "Albatross", "Eagle", "Tempo", "Flop", "Stinger", "Chip", "Putter", "Hybrid", "Gimme",
}

var courses = []struct {
	id   string
	name string
	par  int
}{
	{"pebble-creek", "Pebble Creek GC", 72},
	{"oak-hollow", "Oak Hollow Country Club", 71},
	{"riverbend", "Riverbend Links", 72},
	{"stonebridge", "Stonebridge National", 70},
	{"cypress-point", "Cypress Pointe Golf Club", 72},
	{"heather-glen", "Heather Glen", 71},
	{"sandpiper", "Sandpiper Dunes", 73},
	{"eagle-ridge", "Eagle Ridge", 72},
}

func getPlayerID(idx int) string {
	prefixIdx := idx % len(playerPrefixes)
	suffix := idx/len(playerPrefixes) + 1
	return fmt.Sprintf("%s%d", playerPrefixes[prefixIdx], suffix)
}

func randomScore(playerIdx int) domain.ScoreSubmission {
	course := courses[rand.Intn(len(courses))]

	// Lower player indexes model better golfers
	var gross int
	if playerIdx < 10 {
		gross = course.par + rand.Intn(8) - 4
	} else if playerIdx < 50 {
		gross = course.par + rand.Intn(12)
	} else {
		gross = course.par + 5 + rand.Intn(20)
	}
	handicap := rand.Intn(19)
	net := gross - handicap

	return domain.ScoreSubmission{
		AuthorID:   getPlayerID(playerIdx),
		CourseID:   course.id,
		CourseName: course.name,
		Gross:      gross,
		Net:        net,
		Par:        course.par,
	}
}

func main() {
	// Command line flags
	brokers := flag.String("brokers", "localhost:9094", "Kafka brokers (comma-separated)")
	topic := flag.String("topic", "round-scores", "Kafka topic")
	totalPlayers := flag.Int("players", 200, "Total number of players to simulate")
	updatesPerSecond := flag.Int("rate", 20, "Rounds per second")
	initialRounds := flag.Int("initial", 500, "Initial rounds to seed")
	duration := flag.Duration("duration", 0, "Duration to run (0 = forever)")
	initialOnly := flag.Bool("initial-only", false, "Only seed initial rounds, no continuous updates")
	flag.Parse()

	brokerList := strings.Split(*brokers, ",")

	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("  Round Score Producer")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("  Brokers:          %s\n", *brokers)
	fmt.Printf("  Topic:            %s\n", *topic)
	fmt.Printf("  Players:          %d\n", *totalPlayers)
	fmt.Printf("  Rounds/sec:       %d\n", *updatesPerSecond)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	// Configure Sarama producer
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 100 * time.Millisecond
	config.Producer.Flush.Messages = 100
	config.Producer.Return.Successes = true
	config.Producer.Return.Errors = true

	// Create producer
	producer, err := sarama.NewAsyncProducer(brokerList, config)
	if err != nil {
		log.Fatalf("Failed to create producer: %v", err)
	}
	defer producer.Close()

	// Handle producer errors and successes
	var successCount, errorCount int64
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for range producer.Successes() {
			atomic.AddInt64(&successCount, 1)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for err := range producer.Errors() {
			atomic.AddInt64(&errorCount, 1)
			log.Printf("Producer error: %v", err)
		}
	}()

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})

	// Send message helper
	sendMessage := func(submission domain.ScoreSubmission) {
		data, err := json.Marshal(submission)
		if err != nil {
			log.Printf("Failed to marshal message: %v", err)
			return
		}

		msg := &sarama.ProducerMessage{
			Topic: *topic,
			Key:   sarama.StringEncoder(submission.AuthorID),
			Value: sarama.ByteEncoder(data),
		}

		select {
		case producer.Input() <- msg:
		case <-done:
			return
		}
	}

	// Seed initial rounds
	fmt.Printf("Seeding %d initial rounds...\n", *initialRounds)
	for i := 0; i < *initialRounds; i++ {
		sendMessage(randomScore(rand.Intn(*totalPlayers)))
	}
	fmt.Printf("✓ Seeded %d rounds\n\n", *initialRounds)

	if *initialOnly {
		fmt.Println("Initial-only mode: Exiting after seeding rounds")
		close(done)
		producer.AsyncClose()
		wg.Wait()
		fmt.Printf("\n✓ Completed. Sent: %d, Errors: %d\n", atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
		return
	}

	// Start continuous updates
	fmt.Printf("Publishing continuous rounds (%d/sec), press Ctrl+C to stop\n\n", *updatesPerSecond)

	interval := time.Second / time.Duration(*updatesPerSecond)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	statsTicker := time.NewTicker(5 * time.Second)
	defer statsTicker.Stop()

	var endTime time.Time
	if *duration > 0 {
		endTime = time.Now().Add(*duration)
	}

	var updateCount int64

	for {
		select {
		case <-sigChan:
			fmt.Println("\n\nShutting down...")
			close(done)
			producer.AsyncClose()
			wg.Wait()
			fmt.Printf("\n✓ Completed. Sent: %d, Errors: %d\n", atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
			return

		case <-ticker.C:
			if *duration > 0 && time.Now().After(endTime) {
				fmt.Println("\n\nDuration reached, shutting down...")
				close(done)
				producer.AsyncClose()
				wg.Wait()
				fmt.Printf("\n✓ Completed. Sent: %d, Errors: %d\n", atomic.LoadInt64(&successCount), atomic.LoadInt64(&errorCount))
				return
			}

			sendMessage(randomScore(rand.Intn(*totalPlayers)))
			atomic.AddInt64(&updateCount, 1)

		case <-statsTicker.C:
			fmt.Printf("[%s] Rounds: %d | Sent: %d | Errors: %d\n",
				time.Now().Format("15:04:05"),
				atomic.LoadInt64(&updateCount),
				atomic.LoadInt64(&successCount),
				atomic.LoadInt64(&errorCount),
			)
		}
	}
}
