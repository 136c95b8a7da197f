package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"fluxe/backend/internal/config"
	"fluxe/backend/internal/storage"
)

func usage() {
	fmt.Println("Usage: admin <command> [args]")
	fmt.Println("  rooms            list open room ids")
	fmt.Println("  show <room_id>   print a room with its chat log")
	fmt.Println("  close <room_id>  close an open room")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, _ := config.Load()
	if cfg.StoreDriver == config.StoreMemory {
		log.Fatal("admin needs a persistent store: set STORE_DRIVER to postgres or mongo")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, closeStore, err := storage.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open storage: %v", err)
	}
	defer closeStore()

	command := os.Args[1]

	switch command {
	case "rooms":
		if err := listRooms(ctx, s); err != nil {
			log.Fatalf("Error listing rooms: %v", err)
		}
	case "show":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin show <room_id>")
			os.Exit(1)
		}
		if err := showRoom(ctx, s, os.Args[2]); err != nil {
			log.Fatalf("Error showing room: %v", err)
		}
	case "close":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin close <room_id>")
			os.Exit(1)
		}
		roomID := os.Args[2]
		closed, err := s.CloseRoom(ctx, roomID)
		if err != nil {
			log.Fatalf("Error closing room: %v", err)
		}
		if !closed {
			fmt.Printf("Room %s was not open.\n", roomID)
			return
		}
		fmt.Printf("Room %s has been closed.\n", roomID)
	default:
		usage()
		os.Exit(1)
	}
}

func listRooms(ctx context.Context, s storage.Storage) error {
	ids, err := s.GetOpenRoomIDs(ctx)
	if err != nil {
		return err
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Println(id)
	}
	fmt.Printf("%d open room(s)\n", len(ids))
	return nil
}

func showRoom(ctx context.Context, s storage.Storage, roomID string) error {
	room, err := s.GetRoomByID(ctx, roomID)
	if errors.Is(err, storage.ErrRoomNotFound) {
		return fmt.Errorf("room %s not found", roomID)
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(room)
}
