package payment

var ParsePaddleEvent = parsePaddleEvent
