// Command exchangectl is a small TCP client for the exchanged gateway: it
// places or cancels a single order and prints whatever reports come back.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"strings"

	"github.com/google/uuid"

	"vantage/internal/matching"
	"vantage/internal/wire"
)

func main() {
	serverAddr := flag.String("server", "127.0.0.1:9001", "address of the exchange gateway")
	action := flag.String("action", "place", "action to perform: place, cancel")

	instrumentStr := flag.String("instrument", "", "instrument uuid (required)")
	accountStr := flag.String("account", "", "account uuid (required for place)")
	sideStr := flag.String("side", "buy", "order side: buy or sell")
	typeStr := flag.String("type", "limit", "order type: limit, market, stop, stop_limit")
	tifStr := flag.String("tif", "gtc", "time in force: gtc, ioc, fok, gtd")
	price := flag.Int64("price", 0, "limit price, fixed-point integer ticks")
	trigger := flag.Int64("trigger", 0, "trigger price for stop orders, fixed-point integer ticks")
	qty := flag.Uint64("qty", 0, "base quantity")

	orderIDStr := flag.String("order", "", "order uuid to cancel (required for cancel)")

	flag.Parse()

	instrument, err := uuid.Parse(*instrumentStr)
	if err != nil {
		log.Fatalf("invalid -instrument: %v", err)
	}

	conn, err := net.Dial("tcp", *serverAddr)
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", *serverAddr, err)
	}
	defer conn.Close()

	go readReports(conn)

	switch strings.ToLower(*action) {
	case "place":
		account, err := uuid.Parse(*accountStr)
		if err != nil {
			log.Fatalf("invalid -account: %v", err)
		}
		req := wire.PlaceOrderRequest{
			Instrument:  instrument,
			NewOrderID:  uuid.New(),
			AccountID:   account,
			Side:        parseSide(*sideStr),
			OrderType:   parseOrderType(*typeStr),
			TimeInForce: parseTIF(*tifStr),
			BaseAmount:  *qty,
		}
		if *price != 0 {
			req.LimitPrice = price
		}
		if *trigger != 0 {
			req.TriggerPrice = trigger
		}
		if _, err := conn.Write(wire.EncodeNewOrder(req)); err != nil {
			log.Fatalf("failed to send order: %v", err)
		}
		fmt.Printf("-> placed order %s\n", req.NewOrderID)

	case "cancel":
		orderID, err := uuid.Parse(*orderIDStr)
		if err != nil {
			log.Fatalf("invalid -order: %v", err)
		}
		req := wire.CancelOrderRequest{Instrument: instrument, OrderID: orderID}
		if _, err := conn.Write(wire.EncodeCancelOrder(req)); err != nil {
			log.Fatalf("failed to send cancel: %v", err)
		}
		fmt.Printf("-> cancelled order %s\n", orderID)

	default:
		log.Fatalf("unknown action %q", *action)
	}

	fmt.Println("listening for reports... (ctrl+c to exit)")
	select {}
}

func parseSide(s string) matching.Side {
	if strings.EqualFold(s, "sell") {
		return matching.Ask
	}
	return matching.Bid
}

func parseOrderType(s string) matching.OrderType {
	switch strings.ToLower(s) {
	case "market":
		return matching.MarketOrder
	case "stop":
		return matching.StopOrder
	case "stop_limit":
		return matching.StopLimitOrder
	default:
		return matching.LimitOrder
	}
}

func parseTIF(s string) matching.TimeInForce {
	switch strings.ToLower(s) {
	case "ioc":
		return matching.IOC
	case "fok":
		return matching.FOK
	case "gtd":
		return matching.GTD
	default:
		return matching.GTC
	}
}

func readReports(conn net.Conn) {
	for {
		buf := make([]byte, 4*1024)
		n, err := conn.Read(buf)
		if err != nil {
			if err != io.EOF {
				log.Printf("connection lost: %v", err)
			}
			os.Exit(0)
		}
		report, err := wire.DeserializeReport(buf[:n])
		if err != nil {
			log.Printf("malformed report: %v", err)
			continue
		}
		if report.Kind == wire.ReportError {
			fmt.Printf("\n[ERROR] %s\n", report.ErrStr)
			continue
		}
		sideStr := "BUY"
		if report.Side == matching.Ask {
			sideStr = "SELL"
		}
		fmt.Printf("\n[EXECUTION] %s order=%s qty=%d price=%d vs=%s\n",
			sideStr, report.OrderID, report.BaseAmount, report.Price, report.CounterpartyOrderID)
	}
}
