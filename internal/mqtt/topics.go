package mqtt

import "fmt"

func TopicOrder(prefix, storeID, requestID string) string {
	return fmt.Sprintf("%s/pos/%s/orders/%s", prefix, storeID, requestID)
}

func TopicAck(prefix, storeID, requestID string) string {
	return fmt.Sprintf("%s/pos/%s/acks/%s", prefix, storeID, requestID)
}

func TopicAcks(prefix, storeID string) string {
	return fmt.Sprintf("%s/pos/%s/acks/+", prefix, storeID)
}

func TopicOnline(prefix, storeID string) string {
	return fmt.Sprintf("%s/pos/%s/online", prefix, storeID)
}

func TopicOrders(prefix, storeID string) string {
	return fmt.Sprintf("%s/pos/%s/orders/+", prefix, storeID)
}
