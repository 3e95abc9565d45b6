// main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Quaser41/Autonomous-Trader/cmd"
)

const banner = `
    _____          __
   /  _  \  __ ___/  |_  ____   ____   ____   _____   ____  __ __  ______
  /  /_\  \|  |  \   __\/  _ \ /    \ /  _ \ /     \ /  _ \|  |  \/  ___/
 /    |    \  |  /|  | (  <_> )   |  (  <_> )  Y Y  (  <_> )  |  /\___ \
 \____|__  /____/ |__|  \____/|___|  /\____/|__|_|  /\____/|____//____  >
         \/                        \/             \/                  \/
                       T R A D E R  --  paper positions, real discipline
[]=========================================================================[]
`

func main() {
	fmt.Print(banner)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	cmd.Execute(ctx)
}
