package trajstore_test

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/hupe1980/trajstore"
)

func Example() {
	dir, err := os.MkdirTemp("", "trajstore-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	cfg := trajstore.Config{
		OutputFolder:        dir,
		MaxFramesPerSegment: 4,
		GridSize:            2,
		FrameHeight:         8,
		FrameWidth:          8,
		NumEnvs:             4,
	}
	store, err := trajstore.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	frame := make([]byte, cfg.FrameHeight*cfg.FrameWidth*3)
	obs := [][]byte{frame, frame, frame, frame}
	for step := 0; step < 6; step++ {
		dones := []bool{step == 2, false, false, false}
		if err := store.UpdateAndSaveFrame(obs, dones); err != nil {
			log.Fatal(err)
		}
	}

	slice, err := store.GetSlice(context.Background(), 0, 1)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println("segments:", len(store.Segments()))
	fmt.Println("episode 1 of env 0:", slice.Len(), "frames")
	// Output:
	// segments: 2
	// episode 1 of env 0: 3 frames
}
